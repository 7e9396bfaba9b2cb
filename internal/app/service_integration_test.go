package service_test

import (
	"fmt"
	"sync"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
	service "github.com/wikimedia-contest/jury/internal/app"
	"github.com/wikimedia-contest/jury/internal/domain/model"
	"github.com/wikimedia-contest/jury/internal/domain/scoring"
	"github.com/wikimedia-contest/jury/internal/domain/screening"
)

func TestService_ScreeningQuorumFlow(t *testing.T) {
	Convey("Given a submission under screening with quorum 2", t, func() {
		svc, ctx := startService(t)
		sub, err := svc.CreateSubmission(ctx, intake())
		So(err, ShouldBeNil)

		Convey("When one screener approves", func() {
			_, err := svc.RecordScreeningJudgment(ctx, "alice", sub.ID, model.DecisionEligible, nil, "")
			So(err, ShouldBeNil)

			Convey("Then the submission stays in screening", func() {
				got, err := svc.GetSubmission(ctx, sub.ID)
				So(err, ShouldBeNil)
				So(got.Status, ShouldEqual, model.StatusScreening)
			})
		})

		Convey("When two screeners approve", func() {
			_, err := svc.RecordScreeningJudgment(ctx, "alice", sub.ID, model.DecisionEligible, nil, "")
			So(err, ShouldBeNil)
			_, err = svc.RecordScreeningJudgment(ctx, "bob", sub.ID, model.DecisionEligible, nil, "")
			So(err, ShouldBeNil)

			Convey("Then it moves to scoring phase 1", func() {
				got, err := svc.GetSubmission(ctx, sub.ID)
				So(err, ShouldBeNil)
				So(got.Status, ShouldEqual, model.StatusScoringPhase1)
			})
		})

		Convey("When two screeners reject", func() {
			_, err := svc.RecordScreeningJudgment(ctx, "alice", sub.ID, model.DecisionIneligible, []string{screening.FlagNotOriginal}, "")
			So(err, ShouldBeNil)
			_, err = svc.RecordScreeningJudgment(ctx, "bob", sub.ID, model.DecisionIneligible, []string{screening.FlagCopyrightConcern}, "")
			So(err, ShouldBeNil)

			Convey("Then it becomes ineligible and the flags are unioned", func() {
				got, err := svc.GetSubmission(ctx, sub.ID)
				So(err, ShouldBeNil)
				So(got.Status, ShouldEqual, model.StatusIneligible)

				summary, err := svc.ScreeningSummary(ctx, sub.ID)
				So(err, ShouldBeNil)
				So(summary.Flags, ShouldResemble, []string{
					screening.FlagCopyrightConcern,
					screening.FlagNotOriginal,
				})
			})
		})

		Convey("When screeners split and a third breaks the tie", func() {
			_, err := svc.RecordScreeningJudgment(ctx, "alice", sub.ID, model.DecisionEligible, nil, "")
			So(err, ShouldBeNil)
			_, err = svc.RecordScreeningJudgment(ctx, "bob", sub.ID, model.DecisionIneligible, nil, "")
			So(err, ShouldBeNil)

			got, err := svc.GetSubmission(ctx, sub.ID)
			So(err, ShouldBeNil)
			So(got.Status, ShouldEqual, model.StatusScreening)

			_, err = svc.RecordScreeningJudgment(ctx, "carol", sub.ID, model.DecisionIneligible, nil, "")
			So(err, ShouldBeNil)

			Convey("Then the tie-breaking decision wins", func() {
				got, err := svc.GetSubmission(ctx, sub.ID)
				So(err, ShouldBeNil)
				So(got.Status, ShouldEqual, model.StatusIneligible)
			})
		})

		Convey("When a system record carries flags", func() {
			err := svc.RecordSystemScreening(ctx, sub.ID, []string{screening.FlagSampleRateTooLow})
			So(err, ShouldBeNil)
			_, err = svc.RecordScreeningJudgment(ctx, "alice", sub.ID, model.DecisionIneligible, nil, "")
			So(err, ShouldBeNil)

			Convey("Then it never counts toward the quorum", func() {
				got, err := svc.GetSubmission(ctx, sub.ID)
				So(err, ShouldBeNil)
				So(got.Status, ShouldEqual, model.StatusScreening)

				summary, err := svc.ScreeningSummary(ctx, sub.ID)
				So(err, ShouldBeNil)
				So(summary.DecisionCounts[model.DecisionIneligible], ShouldEqual, 1)
				So(summary.Flags, ShouldContain, screening.FlagSampleRateTooLow)
			})
		})

		Convey("When a screener revises their judgment", func() {
			_, err := svc.RecordScreeningJudgment(ctx, "alice", sub.ID, model.DecisionIneligible, nil, "")
			So(err, ShouldBeNil)
			_, err = svc.RecordScreeningJudgment(ctx, "alice", sub.ID, model.DecisionEligible, nil, "changed my mind")
			So(err, ShouldBeNil)

			Convey("Then only the newest judgment is active", func() {
				summary, err := svc.ScreeningSummary(ctx, sub.ID)
				So(err, ShouldBeNil)
				So(summary.DecisionCounts[model.DecisionEligible], ShouldEqual, 1)
				So(summary.DecisionCounts[model.DecisionIneligible], ShouldEqual, 0)
			})

			Convey("And the full history is preserved", func() {
				history, err := svc.History(ctx, sub.ID)
				So(err, ShouldBeNil)
				So(len(history), ShouldEqual, 2)
				So(history[0].Active, ShouldBeFalse)
				So(history[1].Active, ShouldBeTrue)
				So(history[1].Note, ShouldEqual, "changed my mind")
			})
		})

		Convey("When judgments keep arriving after the transition", func() {
			_, err := svc.RecordScreeningJudgment(ctx, "alice", sub.ID, model.DecisionEligible, nil, "")
			So(err, ShouldBeNil)
			_, err = svc.RecordScreeningJudgment(ctx, "bob", sub.ID, model.DecisionEligible, nil, "")
			So(err, ShouldBeNil)
			_, err = svc.RecordScreeningJudgment(ctx, "carol", sub.ID, model.DecisionIneligible, nil, "")
			So(err, ShouldBeNil)
			_, err = svc.RecordScreeningJudgment(ctx, "dave", sub.ID, model.DecisionIneligible, nil, "")
			So(err, ShouldBeNil)

			Convey("Then they land in the journal but the status stays put", func() {
				got, err := svc.GetSubmission(ctx, sub.ID)
				So(err, ShouldBeNil)
				So(got.Status, ShouldEqual, model.StatusScoringPhase1)

				summary, err := svc.ScreeningSummary(ctx, sub.ID)
				So(err, ShouldBeNil)
				So(summary.DecisionCounts[model.DecisionIneligible], ShouldEqual, 2)
			})
		})
	})
}

func TestService_AutomatedScreening(t *testing.T) {
	Convey("Given a service with tight audio bounds", t, func() {
		svc, ctx := startService(t,
			service.WithAudioLimits(screening.AudioLimits{
				MinDurationMS: 1000,
				MaxDurationMS: 4000,
				MinSampleRate: 44100,
			}),
		)

		Convey("When a submission with out-of-bounds audio arrives", func() {
			in := intake()
			in.Audio.DurationMS = 9000
			sub, err := svc.CreateSubmission(ctx, in)
			So(err, ShouldBeNil)

			// The worker pool flags it asynchronously.
			deadline := time.Now().Add(2 * time.Second)
			var summary screening.Summary
			for time.Now().Before(deadline) {
				summary, err = svc.ScreeningSummary(ctx, sub.ID)
				So(err, ShouldBeNil)
				if len(summary.Flags) > 0 {
					break
				}
				time.Sleep(10 * time.Millisecond)
			}

			Convey("Then a system record carries the duration flag", func() {
				So(summary.Flags, ShouldContain, screening.FlagDurationOutOfRange)
				So(summary.DecisionCounts[model.DecisionEligible], ShouldEqual, 0)
			})
		})

		Convey("When a clean submission arrives", func() {
			sub, err := svc.CreateSubmission(ctx, intake())
			So(err, ShouldBeNil)
			time.Sleep(100 * time.Millisecond)

			Convey("Then no system record is produced", func() {
				history, err := svc.History(ctx, sub.ID)
				So(err, ShouldBeNil)
				So(len(history), ShouldEqual, 0)
			})
		})
	})
}

func TestService_ScoringFlow(t *testing.T) {
	Convey("Given a submission in scoring phase 1", t, func() {
		svc, ctx := startService(t)
		sub, err := svc.CreateSubmission(ctx, intake())
		So(err, ShouldBeNil)
		So(svc.OverrideStatus(ctx, "admin", sub.ID, model.StatusScoringPhase1), ShouldBeNil)

		fullCard := func(v int) map[string]int {
			return map[string]int{
				"identity_fit": v, "recall": v, "originality": v,
				"clarity": v, "adaptability": v,
			}
		}

		Convey("When one panelist scores everything 7", func() {
			_, err := svc.RecordScoringJudgment(ctx, "carol", sub.ID, model.Phase1, fullCard(7), "")
			So(err, ShouldBeNil)

			Convey("Then the weighted score is 7", func() {
				got, err := svc.GetSubmission(ctx, sub.ID)
				So(err, ShouldBeNil)
				So(got.HasOverall, ShouldBeTrue)
				So(got.ScoreOverall, ShouldAlmostEqual, 7.0, 1e-9)
				So(got.ScoreByPhase[model.Phase1], ShouldAlmostEqual, 7.0, 1e-9)
			})
		})

		Convey("When two panelists disagree completely", func() {
			_, err := svc.RecordScoringJudgment(ctx, "carol", sub.ID, model.Phase1, fullCard(10), "")
			So(err, ShouldBeNil)
			_, err = svc.RecordScoringJudgment(ctx, "dave", sub.ID, model.Phase1, fullCard(0), "")
			So(err, ShouldBeNil)

			Convey("Then the flat average lands in the middle", func() {
				result, err := svc.WeightedScore(ctx, sub.ID, scoring.Filter{})
				So(err, ShouldBeNil)
				So(result.Score, ShouldAlmostEqual, 5.0, 1e-9)
				So(result.Judgments, ShouldEqual, 2)
			})
		})

		Convey("When a panelist supersedes their scorecard", func() {
			_, err := svc.RecordScoringJudgment(ctx, "carol", sub.ID, model.Phase1, fullCard(4), "")
			So(err, ShouldBeNil)
			_, err = svc.RecordScoringJudgment(ctx, "carol", sub.ID, model.Phase1, fullCard(9), "")
			So(err, ShouldBeNil)

			Convey("Then only the newest card counts", func() {
				result, err := svc.WeightedScore(ctx, sub.ID, scoring.Filter{})
				So(err, ShouldBeNil)
				So(result.Judgments, ShouldEqual, 1)
				So(result.Score, ShouldAlmostEqual, 9.0, 1e-9)
			})
		})

		Convey("When every score is zero", func() {
			_, err := svc.RecordScoringJudgment(ctx, "carol", sub.ID, model.Phase1, fullCard(0), "")
			So(err, ShouldBeNil)

			Convey("Then the result reads as no score but judgments exist", func() {
				result, err := svc.WeightedScore(ctx, sub.ID, scoring.Filter{})
				So(err, ShouldBeNil)
				So(result.OK, ShouldBeFalse)
				So(result.HasJudgments, ShouldBeTrue)
				So(result.Score, ShouldAlmostEqual, 0.0, 1e-9)
			})
		})

		Convey("When narrowing the aggregate to one reviewer", func() {
			_, err := svc.RecordScoringJudgment(ctx, "carol", sub.ID, model.Phase1, fullCard(8), "")
			So(err, ShouldBeNil)
			_, err = svc.RecordScoringJudgment(ctx, "dave", sub.ID, model.Phase1, fullCard(2), "")
			So(err, ShouldBeNil)

			result, err := svc.WeightedScore(ctx, sub.ID, scoring.Filter{Reviewer: "dave"})
			So(err, ShouldBeNil)
			So(result.Score, ShouldAlmostEqual, 2.0, 1e-9)
			So(result.Judgments, ShouldEqual, 1)
		})
	})
}

func TestService_Ranking(t *testing.T) {
	Convey("Given several scored submissions", t, func() {
		svc, ctx := startService(t)

		score := func(v int) map[string]int {
			return map[string]int{
				"identity_fit": v, "recall": v, "originality": v,
				"clarity": v, "adaptability": v,
			}
		}

		ids := make([]string, 0, 3)
		for i, v := range []int{6, 9, 3} {
			in := intake()
			in.SubmitterEmail = fmt.Sprintf("panelist-%d@example.org", i)
			sub, err := svc.CreateSubmission(ctx, in)
			So(err, ShouldBeNil)
			So(svc.OverrideStatus(ctx, "admin", sub.ID, model.StatusScoringPhase1), ShouldBeNil)
			_, err = svc.RecordScoringJudgment(ctx, "carol", sub.ID, model.Phase1, score(v), "")
			So(err, ShouldBeNil)
			ids = append(ids, sub.ID)
		}

		Convey("When reading the ranking", func() {
			entries, err := svc.TopN(ctx, 10)
			So(err, ShouldBeNil)
			So(len(entries), ShouldEqual, 3)
			So(entries[0].SubmissionID, ShouldEqual, ids[1])
			So(entries[0].Rank, ShouldEqual, 1)
			So(entries[0].Score, ShouldAlmostEqual, 9.0, 1e-9)
			So(entries[2].SubmissionID, ShouldEqual, ids[2])
		})

		Convey("When a rescore drops the leader", func() {
			_, err := svc.RecordScoringJudgment(ctx, "carol", ids[1], model.Phase1, score(1), "")
			So(err, ShouldBeNil)

			entries, err := svc.TopN(ctx, 10)
			So(err, ShouldBeNil)
			So(entries[0].SubmissionID, ShouldEqual, ids[0])

			entry, err := svc.Rank(ctx, ids[1])
			So(err, ShouldBeNil)
			So(entry.Rank, ShouldEqual, 3)
		})

		Convey("When asking for an unranked submission", func() {
			sub, err := svc.CreateSubmission(ctx, intake())
			So(err, ShouldBeNil)
			_, err = svc.Rank(ctx, sub.ID)
			So(err, ShouldWrap, service.ErrNotFound)
		})

		Convey("When the limit is invalid", func() {
			_, err := svc.TopN(ctx, 0)
			So(err, ShouldWrap, service.ErrValidation)
		})
	})
}

func TestService_ConcurrentScreening(t *testing.T) {
	Convey("Given many screeners judging one submission at once", t, func() {
		svc, ctx := startService(t)
		sub, err := svc.CreateSubmission(ctx, intake())
		So(err, ShouldBeNil)

		var wg sync.WaitGroup
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				reviewer := fmt.Sprintf("screener-%d", i)
				decision := model.DecisionEligible
				if i%2 == 0 {
					decision = model.DecisionIneligible
				}
				_, _ = svc.RecordScreeningJudgment(ctx, reviewer, sub.ID, decision, nil, "")
			}(i)
		}
		wg.Wait()

		Convey("Then exactly one transition happened and the journal holds everything", func() {
			got, err := svc.GetSubmission(ctx, sub.ID)
			So(err, ShouldBeNil)
			So(got.Status, ShouldBeIn, model.StatusScoringPhase1, model.StatusIneligible)

			history, err := svc.History(ctx, sub.ID)
			So(err, ShouldBeNil)
			So(len(history), ShouldEqual, 10)
		})
	})
}
