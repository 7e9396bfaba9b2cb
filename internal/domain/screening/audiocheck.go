package screening

import (
	"sort"
	"strings"

	"github.com/wikimedia-contest/jury/internal/domain/model"
)

// AudioLimits holds the intake bounds automated screening enforces.
// Zero values disable the corresponding check, so a partially
// configured deployment only flags what it cares about.
type AudioLimits struct {
	MinDurationMS  int64
	MaxDurationMS  int64
	MinSampleRate  int
	MaxChannels    int
	MaxSizeBytes   int64
	AllowedFormats []string
}

// CheckAudio returns the automated flag codes the audio metadata
// violates, sorted, or nil when everything is inside bounds.
func CheckAudio(audio model.AudioMeta, limits AudioLimits) []string {
	var flags []string

	if limits.MinDurationMS > 0 && audio.DurationMS < limits.MinDurationMS {
		flags = append(flags, FlagDurationOutOfRange)
	} else if limits.MaxDurationMS > 0 && audio.DurationMS > limits.MaxDurationMS {
		flags = append(flags, FlagDurationOutOfRange)
	}

	if limits.MinSampleRate > 0 && audio.SampleRate < limits.MinSampleRate {
		flags = append(flags, FlagSampleRateTooLow)
	}

	if limits.MaxChannels > 0 && audio.Channels > limits.MaxChannels {
		flags = append(flags, FlagChannelsUnsupported)
	}

	if limits.MaxSizeBytes > 0 && audio.SizeBytes > limits.MaxSizeBytes {
		flags = append(flags, FlagFileTooLarge)
	}

	if len(limits.AllowedFormats) > 0 {
		allowed := false
		for _, f := range limits.AllowedFormats {
			if strings.EqualFold(f, audio.Format) {
				allowed = true
				break
			}
		}
		if !allowed {
			flags = append(flags, FlagFormatUnsupported)
		}
	}

	sort.Strings(flags)
	return flags
}
