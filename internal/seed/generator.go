package seed

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"strconv"

	"github.com/google/uuid"

	"github.com/wikimedia-contest/jury/pkg/logger"
)

// Constants for random number generation.
const (
	randomFloatDivisor = 1000000
	profileDivisor     = 10
)

// Audio profile cases. Most submissions are clean; a tail of profiles
// trips one of the automated intake checks so screeners have flagged
// records to review.
const (
	caseCleanOgg      = 0
	caseCleanWav      = 6
	caseCleanFlac     = 7
	caseTooShort      = 8
	caseLowSampleRate = 9
)

// Clean clip parameter ranges. Durations stay inside the contest's
// 1000-4000ms window, sample rates at or above 44.1kHz.
const (
	cleanDurationMinMS  = 1200
	cleanDurationSpanMS = 2600
	shortDurationMaxMS  = 900
	lowSampleRate       = 22050
	standardSampleRate  = 44100
	highSampleRate      = 48000
	clipSizeMinBytes    = 200_000
	clipSizeSpanBytes   = 4_000_000
)

var countries = []string{"DE", "IN", "NG", "BR", "US", "FR", "JP", "EG", "PL", "ID"}

var creationProcesses = []string{
	"recorded acoustic instruments and mixed in a DAW",
	"synthesized from scratch with open-source tools",
	"layered field recordings with a short melodic motif",
	"composed on piano and rendered with sampled instruments",
}

// getRandomFloat returns a random float64 between 0.0 and 1.0 using crypto/rand.
func getRandomFloat() float64 {
	n, _ := rand.Int(rand.Reader, big.NewInt(randomFloatDivisor))
	return float64(n.Int64()) / float64(randomFloatDivisor)
}

func randomInt(n int64) int64 {
	v, _ := rand.Int(rand.Reader, big.NewInt(n))
	return v.Int64()
}

// generateIntakes creates the specified number of intakes with unique
// submitter identities and varied audio metadata.
func generateIntakes(ctx context.Context, config *Config, stats *Stats) ([]Intake, error) {
	logger.Get().Info(ctx, "generating intakes", logger.Int("numSubmissions", config.NumSubmissions))

	intakes := make([]Intake, config.NumSubmissions)

	type intakeResult struct {
		index  int
		intake Intake
		err    error
	}

	resultChan := make(chan intakeResult, config.NumSubmissions)

	workerCount := minInt(config.Workers, config.NumSubmissions)
	perWorker := config.NumSubmissions / workerCount

	for worker := 0; worker < workerCount; worker++ {
		start := worker * perWorker
		end := start + perWorker
		if worker == workerCount-1 {
			end = config.NumSubmissions
		}

		go func(start, end int) {
			for i := start; i < end; i++ {
				select {
				case <-ctx.Done():
					resultChan <- intakeResult{index: i, err: ctx.Err()}
					return
				default:
					resultChan <- intakeResult{index: i, intake: generateSingleIntake(i)}
				}
			}
		}(start, end)
	}

	for i := 0; i < config.NumSubmissions; i++ {
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("context cancelled during intake generation: %w", ctx.Err())
		case result := <-resultChan:
			if result.err != nil {
				return nil, fmt.Errorf("failed to generate intake %d: %w", result.index, result.err)
			}
			intakes[result.index] = result.intake
		}
	}

	stats.SubmissionsGenerated = len(intakes)
	logger.Get().Info(ctx, "generated intakes successfully", logger.Int("count", len(intakes)))

	return intakes, nil
}

// generateSingleIntake creates one intake with the given index.
func generateSingleIntake(index int) Intake {
	id := uuid.New().String()
	name := "Contestant " + strconv.Itoa(index)
	email := "contestant" + strconv.Itoa(index) + "@example.org"
	country := countries[randomInt(int64(len(countries)))]
	process := creationProcesses[randomInt(int64(len(creationProcesses)))]

	return Intake{
		SubmitterName:    name,
		SubmitterEmail:   email,
		SubmitterCountry: country,
		CreationProcess:  process,
		Audio:            generateAudioProfile(id),
		Token:            "seed-" + id,
	}
}

// generateAudioProfile creates audio metadata following a weighted
// profile distribution.
func generateAudioProfile(id string) Audio {
	audio := Audio{
		FileRef:    "store://clips/" + id + ".ogg",
		Format:     "ogg",
		DurationMS: cleanDurationMinMS + int64(getRandomFloat()*cleanDurationSpanMS),
		SampleRate: standardSampleRate,
		Channels:   2,
		SizeBytes:  clipSizeMinBytes + int64(getRandomFloat()*clipSizeSpanBytes),
	}

	switch randomInt(profileDivisor) {
	case caseCleanWav:
		audio.Format = "wav"
		audio.FileRef = "store://clips/" + id + ".wav"
		audio.SampleRate = highSampleRate
	case caseCleanFlac:
		audio.Format = "flac"
		audio.FileRef = "store://clips/" + id + ".flac"
		audio.SampleRate = highSampleRate
	case caseTooShort:
		audio.DurationMS = int64(getRandomFloat() * shortDurationMaxMS)
	case caseLowSampleRate:
		audio.SampleRate = lowSampleRate
	default:
		// Clean ogg clip, the common case.
	}

	return audio
}

// minInt returns the minimum of two integers.
func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
