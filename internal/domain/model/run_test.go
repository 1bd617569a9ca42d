package model_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/okian/runboard/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestConclusion(t *testing.T) {
	Convey("Given a run without a conclusion", t, func() {
		var c model.Conclusion

		Convey("Then it is in progress", func() {
			So(c.InProgress(), ShouldBeTrue)
			So(c.Label(), ShouldEqual, "In Progress")
		})
	})

	Convey("Given concluded runs", t, func() {
		Convey("Then the conclusion is shown verbatim", func() {
			So(model.ConclusionSuccess.InProgress(), ShouldBeFalse)
			So(model.ConclusionSuccess.Label(), ShouldEqual, "success")
			So(model.Conclusion("cancelled").Label(), ShouldEqual, "cancelled")
		})
	})
}

func TestFlattenedRunJSON(t *testing.T) {
	Convey("Given a flattened run", t, func() {
		run := model.FlattenedRun{
			WorkflowRun: model.WorkflowRun{
				ID:         7,
				Conclusion: model.ConclusionFailure,
				CreatedAt:  time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC),
			},
			WorkflowID:   10,
			WorkflowName: "CI",
		}

		data, err := json.Marshal(run)

		Convey("Then the run fields are inlined next to the workflow", func() {
			So(err, ShouldBeNil)
			So(string(data), ShouldEqual,
				`{"id":7,"conclusion":"failure","created_at":"2024-05-01T08:00:00Z","workflow_id":10,"workflow_name":"CI"}`)
		})
	})
}
