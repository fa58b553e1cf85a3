// Package deepgram synthesizes speech through Deepgram's realtime speak API.
package deepgram

import (
	"fmt"
	"slices"
)

type deepgramVoice string

const (
	VoiceAsteria deepgramVoice = "aura-2-asteria-en"
	VoiceThalia  deepgramVoice = "aura-2-thalia-en"
	VoiceOrpheus deepgramVoice = "aura-2-orpheus-en"
	VoiceHelios  deepgramVoice = "aura-2-helios-en"

	defaultVoice = VoiceAsteria
)

func GetAvailableVoices() []deepgramVoice {
	return []deepgramVoice{VoiceAsteria, VoiceThalia, VoiceOrpheus, VoiceHelios}
}

type TextToSpeechClient struct {
	voice deepgramVoice
}

func NewTextToSpeechClient(voice deepgramVoice) (*TextToSpeechClient, error) {
	if voice == "" {
		voice = defaultVoice
	}
	if !slices.Contains(GetAvailableVoices(), voice) {
		return nil, fmt.Errorf("invalid voice")
	}

	return &TextToSpeechClient{voice: voice}, nil
}

func (c *TextToSpeechClient) SetVoice(voice deepgramVoice) {
	c.voice = voice
}
