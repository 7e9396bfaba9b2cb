package service_test

import (
	"context"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
	service "github.com/wikimedia-contest/jury/internal/app"
	"github.com/wikimedia-contest/jury/internal/domain/model"
	"github.com/wikimedia-contest/jury/pkg/logger"
)

func init() {
	// Initialize logging for tests
	err := logger.Init()
	if err != nil {
		panic(err)
	}
}

func intake() service.Intake {
	return service.Intake{
		SubmitterName:    "Ada",
		SubmitterEmail:   "ada@example.org",
		SubmitterCountry: "DE",
		CreationProcess:  "recorded on a field recorder, edited at home",
		Audio: model.AudioMeta{
			FileRef:    "store://clips/ada-1.ogg",
			Format:     "ogg",
			DurationMS: 3200,
			SampleRate: 48000,
			Channels:   2,
			SizeBytes:  2 << 20,
		},
	}
}

func startService(t *testing.T, opts ...service.Option) (*service.Service, context.Context) {
	t.Helper()
	svc := service.New(opts...)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)
	t.Cleanup(svc.Stop)
	if err := svc.Start(ctx); err != nil {
		t.Fatalf("starting service: %v", err)
	}
	return svc, ctx
}

func TestService_New(t *testing.T) {
	Convey("Given a new service with default options", t, func() {
		svc := service.New()

		Convey("Then it should have sensible defaults", func() {
			So(svc, ShouldNotBeNil)
			So(svc.Rubric(), ShouldNotBeNil)
		})
	})

	Convey("Given a new service with custom options", t, func() {
		svc := service.New(
			service.WithWorkerCount(8),
			service.WithQueueSize(50_000),
			service.WithDedupeSize(25_000),
			service.WithQuorum(3),
		)

		Convey("Then it should be created successfully", func() {
			So(svc, ShouldNotBeNil)
		})
	})
}

func TestService_Lifecycle(t *testing.T) {
	Convey("Given a new service", t, func() {
		svc := service.New()
		defer svc.Stop()

		Convey("When starting the service", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			err := svc.Start(ctx)

			Convey("Then it should start successfully", func() {
				So(err, ShouldBeNil)
				So(svc.GetStats()["started"], ShouldEqual, true)
			})

			Convey("And starting twice is a no-op", func() {
				So(svc.Start(ctx), ShouldBeNil)
			})

			Convey("And stopping marks it stopped", func() {
				svc.Stop()
				So(svc.GetStats()["started"], ShouldEqual, false)
			})
		})
	})
}

func TestService_CreateSubmission(t *testing.T) {
	Convey("Given a started service", t, func() {
		svc, ctx := startService(t)

		Convey("When creating a submission", func() {
			sub, err := svc.CreateSubmission(ctx, intake())

			Convey("Then it lands in screening with an id and a code", func() {
				So(err, ShouldBeNil)
				So(sub.ID, ShouldNotBeEmpty)
				So(sub.Code, ShouldStartWith, "SL-")
				So(sub.Status, ShouldEqual, model.StatusScreening)
			})

			Convey("And it is retrievable by id and by code", func() {
				So(err, ShouldBeNil)
				byID, err := svc.GetSubmission(ctx, sub.ID)
				So(err, ShouldBeNil)
				So(byID.SubmitterEmail, ShouldEqual, "ada@example.org")

				byCode, err := svc.GetSubmissionByCode(ctx, sub.Code)
				So(err, ShouldBeNil)
				So(byCode.ID, ShouldEqual, sub.ID)
			})
		})

		Convey("When the intake is missing required fields", func() {
			in := intake()
			in.SubmitterEmail = ""
			_, err := svc.CreateSubmission(ctx, in)

			Convey("Then it is rejected as validation", func() {
				So(err, ShouldWrap, service.ErrValidation)
			})
		})

		Convey("When replaying an idempotency token", func() {
			in := intake()
			in.Token = "intake-token-1"
			_, err := svc.CreateSubmission(ctx, in)
			So(err, ShouldBeNil)

			_, err = svc.CreateSubmission(ctx, in)

			Convey("Then the replay does not create a second submission", func() {
				So(err, ShouldWrap, service.ErrValidation)
				subs, listErr := svc.ListSubmissions(ctx, "")
				So(listErr, ShouldBeNil)
				So(len(subs), ShouldEqual, 1)
			})
		})
	})
}

func TestService_Permissions(t *testing.T) {
	Convey("Given a service with configured roles", t, func() {
		svc, ctx := startService(t,
			service.WithRoles(
				[]string{"screener-1"},
				[]string{"panelist-1"},
				[]string{"admin-1"},
			),
		)
		sub, err := svc.CreateSubmission(ctx, intake())
		So(err, ShouldBeNil)

		Convey("When a non-screener screens", func() {
			_, err := svc.RecordScreeningJudgment(ctx, "panelist-1", sub.ID, model.DecisionEligible, nil, "")
			So(err, ShouldWrap, service.ErrPermission)
		})

		Convey("When an anonymous caller screens", func() {
			_, err := svc.RecordScreeningJudgment(ctx, "", sub.ID, model.DecisionEligible, nil, "")
			So(err, ShouldWrap, service.ErrValidation)
		})

		Convey("When a screener screens", func() {
			_, err := svc.RecordScreeningJudgment(ctx, "screener-1", sub.ID, model.DecisionEligible, nil, "")
			So(err, ShouldBeNil)
		})

		Convey("When a non-admin overrides status", func() {
			err := svc.OverrideStatus(ctx, "screener-1", sub.ID, model.StatusScoringPhase1)
			So(err, ShouldWrap, service.ErrPermission)
		})

		Convey("When an admin overrides status", func() {
			err := svc.OverrideStatus(ctx, "admin-1", sub.ID, model.StatusScoringPhase1)
			So(err, ShouldBeNil)
			got, err := svc.GetSubmission(ctx, sub.ID)
			So(err, ShouldBeNil)
			So(got.Status, ShouldEqual, model.StatusScoringPhase1)
		})
	})
}

func TestService_ScreeningValidation(t *testing.T) {
	Convey("Given a started service and a submission", t, func() {
		svc, ctx := startService(t)
		sub, err := svc.CreateSubmission(ctx, intake())
		So(err, ShouldBeNil)

		Convey("When the decision is unknown", func() {
			_, err := svc.RecordScreeningJudgment(ctx, "alice", sub.ID, "maybe", nil, "")
			So(err, ShouldWrap, service.ErrValidation)
		})

		Convey("When a flag code is outside the vocabulary", func() {
			_, err := svc.RecordScreeningJudgment(ctx, "alice", sub.ID, model.DecisionIneligible, []string{"sounds_bad"}, "")
			So(err, ShouldWrap, service.ErrValidation)
		})

		Convey("When the submission does not exist", func() {
			_, err := svc.RecordScreeningJudgment(ctx, "alice", "nope", model.DecisionEligible, nil, "")
			So(err, ShouldWrap, service.ErrNotFound)
		})
	})
}

func TestService_ScoringStateGuard(t *testing.T) {
	Convey("Given a submission still in screening", t, func() {
		svc, ctx := startService(t)
		sub, err := svc.CreateSubmission(ctx, intake())
		So(err, ShouldBeNil)

		Convey("When a panelist scores it", func() {
			_, err := svc.RecordScoringJudgment(ctx, "carol", sub.ID, model.Phase1,
				map[string]int{"identity_fit": 8}, "")

			Convey("Then the judgment is rejected as a state error", func() {
				So(err, ShouldWrap, service.ErrState)
			})
		})

		Convey("When the scorecard is empty", func() {
			_, err := svc.RecordScoringJudgment(ctx, "carol", sub.ID, model.Phase1, nil, "")
			So(err, ShouldWrap, service.ErrValidation)
		})

		Convey("When a criterion is unknown", func() {
			_, err := svc.RecordScoringJudgment(ctx, "carol", sub.ID, model.Phase1,
				map[string]int{"vibes": 8}, "")
			So(err, ShouldWrap, service.ErrNotFound)
		})

		Convey("When a score is out of range", func() {
			_, err := svc.RecordScoringJudgment(ctx, "carol", sub.ID, model.Phase1,
				map[string]int{"identity_fit": 11}, "")
			So(err, ShouldWrap, service.ErrValidation)
		})

		Convey("When scoring a phase that is not the open one", func() {
			err := svc.OverrideStatus(ctx, "admin", sub.ID, model.StatusScoringPhase2)
			So(err, ShouldBeNil)
			_, err = svc.RecordScoringJudgment(ctx, "carol", sub.ID, model.Phase1,
				map[string]int{"identity_fit": 8}, "")
			So(err, ShouldWrap, service.ErrState)
		})
	})
}
