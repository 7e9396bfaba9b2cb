package seed

import (
	"fmt"
	"log"
	"sort"
)

// verifyResults checks the consistency of individual ranks against the
// ranking listing.
func verifyResults(config *Config, ranks, ranking []Entry) error {
	log.Println("🔍 Verifying results...")

	if len(ranks) == 0 {
		return fmt.Errorf("no ranks to verify")
	}

	// Sort individual ranks by score descending to get the expected
	// leaders.
	sortedRanks := make([]Entry, len(ranks))
	copy(sortedRanks, ranks)
	sort.Slice(sortedRanks, func(i, j int) bool {
		return sortedRanks[i].Score > sortedRanks[j].Score
	})

	if len(ranking) > 0 {
		if err := verifyRankingConsistency(sortedRanks, ranking); err != nil {
			log.Printf("⚠️  Ranking consistency warning: %v", err)
		} else {
			log.Println("✅ Ranking consistency verified")
		}
	}

	displayTopSubmissions(sortedRanks, ranking, config.Verbose)

	log.Println("✅ Result verification completed")
	return nil
}

// verifyRankingConsistency checks that the ranking listing matches the
// individually retrieved ranks.
func verifyRankingConsistency(sortedRanks, ranking []Entry) error {
	if len(ranking) == 0 {
		return fmt.Errorf("empty ranking")
	}

	topRank := sortedRanks[0]
	topListing := ranking[0]

	if topRank.Score != topListing.Score {
		return fmt.Errorf("top ranking score (%.3f) does not match top individual score (%.3f)",
			topListing.Score, topRank.Score)
	}

	// The listing must be sorted by score descending with ranks that
	// never decrease.
	for i := 1; i < len(ranking); i++ {
		if ranking[i].Score > ranking[i-1].Score {
			return fmt.Errorf("ranking not sorted: entry %d has higher score than entry %d", i, i-1)
		}
		if ranking[i].Rank < ranking[i-1].Rank {
			return fmt.Errorf("ranking ranks not monotonic at entry %d", i)
		}
		if ranking[i].Score == ranking[i-1].Score && ranking[i].Rank != ranking[i-1].Rank {
			return fmt.Errorf("tied scores at entries %d and %d carry different ranks", i-1, i)
		}
	}

	return nil
}

// displayTopSubmissions shows the leading submissions from both views.
func displayTopSubmissions(sortedRanks, ranking []Entry, verbose bool) {
	topN := 10
	if len(sortedRanks) < topN {
		topN = len(sortedRanks)
	}

	log.Printf("🏆 Top %d submissions by individual rank:", topN)
	for i := 0; i < topN; i++ {
		entry := sortedRanks[i]
		log.Printf("   %d. %s - Score: %.3f", entry.Rank, entry.SubmissionID, entry.Score)
	}

	if len(ranking) > 0 {
		listingTopN := topN
		if len(ranking) < listingTopN {
			listingTopN = len(ranking)
		}

		log.Printf("🥇 Top %d submissions from the ranking listing:", listingTopN)
		for i := 0; i < listingTopN; i++ {
			entry := ranking[i]
			log.Printf("   %d. %s - Score: %.3f", entry.Rank, entry.SubmissionID, entry.Score)
		}
	}

	if verbose && len(sortedRanks) > 0 {
		avgScore := calculateAverageScore(sortedRanks)
		maxScore := sortedRanks[0].Score
		minScore := sortedRanks[len(sortedRanks)-1].Score

		log.Printf(`📊 Score statistics:
   Average: %.3f
   Maximum: %.3f
   Minimum: %.3f
`, avgScore, maxScore, minScore)
	}
}

// calculateAverageScore calculates the average score over rank entries.
func calculateAverageScore(ranks []Entry) float64 {
	if len(ranks) == 0 {
		return 0
	}

	sum := 0.0
	for _, entry := range ranks {
		sum += entry.Score
	}

	return sum / float64(len(ranks))
}
