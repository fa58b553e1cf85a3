package audio

const (
	DefaultSampleRate = 16000
	DefaultFormat     = FormatLinear16
)

func GetDefaultEncodingInfo() EncodingInfo {
	return EncodingInfo{SampleRate: DefaultSampleRate, Encoding: DefaultFormat}
}

type EncodingInfo struct {
	SampleRate int
	Encoding   Format
}

func (e EncodingInfo) IsZero() bool {
	return e.SampleRate == 0 || e.Encoding.Name() == ""
}

func (e EncodingInfo) SilenceValue() byte {
	switch e.Encoding {
	case FormatALaw:
		return 0x55
	case FormatMulaw:
		return 0xFF
	case FormatLinear16:
		return 0
	}

	return 0
}

// BytesPerSecond is the raw single-channel audio throughput. Returns 0 for
// unknown formats.
func (e EncodingInfo) BytesPerSecond() int {
	byteSize := e.Encoding.ByteSize()
	if byteSize <= 0 {
		return 0
	}
	return e.SampleRate * byteSize
}

type Format string

func (f Format) Name() string {
	return string(f)
}

func (f Format) ByteSize() int {
	switch f {
	case FormatMulaw, FormatALaw:
		return 1
	case FormatLinear16:
		return 2
	}
	return -1
}

const (
	FormatMulaw    Format = "mulaw"
	FormatALaw     Format = "alaw"
	FormatLinear16 Format = "linear16"
)
