package screening_test

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
	"github.com/wikimedia-contest/jury/internal/domain/model"
	"github.com/wikimedia-contest/jury/internal/domain/screening"
)

func TestCheckAudio(t *testing.T) {
	limits := screening.AudioLimits{
		MinDurationMS:  1000,
		MaxDurationMS:  4000,
		MinSampleRate:  44100,
		MaxChannels:    2,
		MaxSizeBytes:   100 << 20,
		AllowedFormats: []string{"ogg", "wav", "mp3"},
	}

	Convey("Given the configured audio limits", t, func() {
		Convey("When the audio is inside every bound", func() {
			flags := screening.CheckAudio(model.AudioMeta{
				Format:     "OGG",
				DurationMS: 3500,
				SampleRate: 48000,
				Channels:   2,
				SizeBytes:  5 << 20,
			}, limits)
			So(flags, ShouldBeNil)
		})

		Convey("When the clip is too short", func() {
			flags := screening.CheckAudio(model.AudioMeta{
				Format: "ogg", DurationMS: 500, SampleRate: 48000, Channels: 1, SizeBytes: 1 << 20,
			}, limits)
			So(flags, ShouldResemble, []string{screening.FlagDurationOutOfRange})
		})

		Convey("When the clip is too long", func() {
			flags := screening.CheckAudio(model.AudioMeta{
				Format: "ogg", DurationMS: 9000, SampleRate: 48000, Channels: 1, SizeBytes: 1 << 20,
			}, limits)
			So(flags, ShouldResemble, []string{screening.FlagDurationOutOfRange})
		})

		Convey("When several bounds are violated at once", func() {
			flags := screening.CheckAudio(model.AudioMeta{
				Format:     "flac",
				DurationMS: 200,
				SampleRate: 8000,
				Channels:   6,
				SizeBytes:  500 << 20,
			}, limits)
			So(flags, ShouldResemble, []string{
				screening.FlagChannelsUnsupported,
				screening.FlagDurationOutOfRange,
				screening.FlagFileTooLarge,
				screening.FlagFormatUnsupported,
				screening.FlagSampleRateTooLow,
			})
		})

		Convey("When every flag is validated against the vocabulary", func() {
			flags := screening.CheckAudio(model.AudioMeta{}, limits)
			So(screening.ValidateFlags(flags), ShouldBeNil)
		})

		Convey("When limits are zero-valued", func() {
			flags := screening.CheckAudio(model.AudioMeta{DurationMS: 1}, screening.AudioLimits{})
			So(flags, ShouldBeNil)
		})
	})
}
