package access

import (
	"errors"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/moodmarket/internal/domain/model"
)

func TestRoles(t *testing.T) {
	Convey("Given roles with an owner and no oracle", t, func() {
		r := New("owner")

		So(r.IsOwner("owner"), ShouldBeTrue)
		So(r.IsOwner(""), ShouldBeFalse)
		So(r.IsOracle(""), ShouldBeFalse)
		_, ok := r.Oracle()
		So(ok, ShouldBeFalse)

		Convey("When a stranger registers an oracle", func() {
			err := r.RegisterOracle("stranger", "oracle")
			So(errors.Is(err, model.ErrUnauthorized), ShouldBeTrue)
		})

		Convey("When the owner registers an empty identity", func() {
			err := r.RegisterOracle("owner", " ")
			So(errors.Is(err, model.ErrInvalidInput), ShouldBeTrue)
		})

		Convey("When the owner registers the oracle", func() {
			So(r.RegisterOracle("owner", "oracle"), ShouldBeNil)

			Convey("Then the oracle holds its role", func() {
				So(r.IsOracle("oracle"), ShouldBeTrue)
				So(r.Require("oracle", model.RoleOwner, model.RoleOracle), ShouldBeNil)
				So(r.Require("owner", model.RoleOwner, model.RoleOracle), ShouldBeNil)
				So(errors.Is(r.Require("user", model.RoleOwner, model.RoleOracle), model.ErrUnauthorized), ShouldBeTrue)
			})

			Convey("Then a second registration is refused", func() {
				err := r.RegisterOracle("owner", "other")
				So(errors.Is(err, model.ErrUnauthorized), ShouldBeTrue)
				id, _ := r.Oracle()
				So(id, ShouldEqual, model.Identity("oracle"))
			})
		})
	})

	Convey("Given roles with a pre-registered oracle", t, func() {
		r := New("owner", WithOracle("feed"))
		So(r.IsOracle("feed"), ShouldBeTrue)
		So(r.Has("feed", model.RoleOwner), ShouldBeFalse)
		So(r.Has("feed", model.Role("admin")), ShouldBeFalse)
	})
}
