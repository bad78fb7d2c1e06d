package model_test

import (
	"encoding/json"
	"testing"

	model "github.com/eduguard/eduguard/internal/domain/model"
	"github.com/smartystreets/goconvey/convey"
)

func TestPresence(t *testing.T) {
	convey.Convey("Given raw ledger values", t, func() {
		convey.Convey("When parsing the accepted attending values", func() {
			convey.Convey("Then true, Present and Late attend", func() {
				convey.So(model.ParsePresence(true).Attended(), convey.ShouldBeTrue)
				convey.So(model.ParsePresence("Present").Attended(), convey.ShouldBeTrue)
				convey.So(model.ParsePresence("Late").Attended(), convey.ShouldBeTrue)
				convey.So(model.ParsePresence("Late"), convey.ShouldEqual, model.Late)
			})
		})

		convey.Convey("When parsing anything else", func() {
			convey.Convey("Then it counts as absent", func() {
				convey.So(model.ParsePresence(false), convey.ShouldEqual, model.Absent)
				convey.So(model.ParsePresence("Absent"), convey.ShouldEqual, model.Absent)
				convey.So(model.ParsePresence("present"), convey.ShouldEqual, model.Absent)
				convey.So(model.ParsePresence(nil), convey.ShouldEqual, model.Absent)
				convey.So(model.ParsePresence(1.0), convey.ShouldEqual, model.Absent)
			})
		})
	})
}

func TestClassLedgerJSON(t *testing.T) {
	convey.Convey("Given a class ledger exported from the store", t, func() {
		raw := `{
			"2024-03-02": {"s1": true, "s2": "Present", "s3": "Absent", "s4": "Late"},
			"2024-03-01": {"s1": false, "s2": null, "s3": 7}
		}`

		convey.Convey("When decoding it", func() {
			var ledger model.ClassLedger
			err := json.Unmarshal([]byte(raw), &ledger)

			convey.Convey("Then every value maps onto the tri-state", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(ledger["2024-03-02"]["s1"], convey.ShouldEqual, model.Present)
				convey.So(ledger["2024-03-02"]["s2"], convey.ShouldEqual, model.Present)
				convey.So(ledger["2024-03-02"]["s3"], convey.ShouldEqual, model.Absent)
				convey.So(ledger["2024-03-02"]["s4"], convey.ShouldEqual, model.Late)
				convey.So(ledger["2024-03-01"]["s2"], convey.ShouldEqual, model.Absent)
				convey.So(ledger["2024-03-01"]["s3"], convey.ShouldEqual, model.Absent)
				convey.So(len(ledger["2024-03-01"]), convey.ShouldEqual, 3)
			})

			convey.Convey("And the dates come back sorted", func() {
				convey.So(ledger.Dates(), convey.ShouldResemble, []string{"2024-03-01", "2024-03-02"})
			})
		})

		convey.Convey("When encoding a presence", func() {
			b, err := json.Marshal(model.DayRecord{"s1": model.Late})

			convey.Convey("Then the literal form is written", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(string(b), convey.ShouldEqual, `{"s1":"Late"}`)
			})
		})
	})
}

func TestSubmissionJSON(t *testing.T) {
	convey.Convey("Given homework status records", t, func() {
		raw := `{"s1": "Submitted", "s2": true, "s3": "Pending", "s4": "Late", "s5": null}`

		convey.Convey("When decoding them", func() {
			var set model.SubmissionSet
			err := json.Unmarshal([]byte(raw), &set)

			convey.Convey("Then only completed states count", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(bool(set["s1"]), convey.ShouldBeTrue)
				convey.So(bool(set["s2"]), convey.ShouldBeTrue)
				convey.So(bool(set["s3"]), convey.ShouldBeFalse)
				convey.So(bool(set["s4"]), convey.ShouldBeTrue)
				convey.So(bool(set["s5"]), convey.ShouldBeFalse)
			})
		})
	})
}
