package access_test

import (
	"context"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
	"github.com/wikimedia-contest/jury/internal/domain/access"
)

func TestStaticProvider(t *testing.T) {
	ctx := context.Background()

	Convey("Given a provider with explicit role lists", t, func() {
		p := access.NewStaticProvider(
			access.WithScreeners([]string{"s1", "s2"}),
			access.WithPanelists([]string{"p1"}),
			access.WithAdmins([]string{"admin"}),
		)

		Convey("When checking screeners", func() {
			So(p.CanScreen(ctx, "s1"), ShouldBeTrue)
			So(p.CanScreen(ctx, "p1"), ShouldBeFalse)
		})

		Convey("When checking panelists", func() {
			So(p.CanScore(ctx, "p1"), ShouldBeTrue)
			So(p.CanScore(ctx, "s1"), ShouldBeFalse)
		})

		Convey("When checking admins", func() {
			So(p.CanAssignScorers(ctx, "admin"), ShouldBeTrue)
			So(p.CanAssignScorers(ctx, "p1"), ShouldBeFalse)
		})

		Convey("When the reviewer id is empty", func() {
			So(p.CanScreen(ctx, ""), ShouldBeFalse)
			So(p.CanScore(ctx, ""), ShouldBeFalse)
		})
	})

	Convey("Given a provider with no role lists", t, func() {
		p := access.NewStaticProvider()

		Convey("Then any non-empty reviewer id passes", func() {
			So(p.CanScreen(ctx, "anyone"), ShouldBeTrue)
			So(p.CanScore(ctx, "anyone"), ShouldBeTrue)
			So(p.CanAssignScorers(ctx, "anyone"), ShouldBeTrue)
		})

		Convey("But an empty reviewer id still fails", func() {
			So(p.CanScreen(ctx, ""), ShouldBeFalse)
		})
	})
}
