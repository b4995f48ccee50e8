package auth_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/okian/mmo/internal/auth"
	. "github.com/smartystreets/goconvey/convey"
)

func TestVerifier(t *testing.T) {
	Convey("Given a verifier with plaintext and bcrypt users", t, func() {
		hash, err := auth.HashPassword("s3cret")
		So(err, ShouldBeNil)
		v := auth.NewVerifier(map[string]string{
			"plain":  "letmein",
			"hashed": hash,
		})
		So(v.Users(), ShouldEqual, 2)

		Convey("When the passwords are correct", func() {
			Convey("Then both users should verify", func() {
				So(v.Verify("plain", "letmein"), ShouldBeNil)
				So(v.Verify("hashed", "s3cret"), ShouldBeNil)
			})
		})

		Convey("When the passwords are wrong", func() {
			Convey("Then ErrInvalidCredentials should be returned", func() {
				So(errors.Is(v.Verify("plain", "letmein!"), auth.ErrInvalidCredentials), ShouldBeTrue)
				So(errors.Is(v.Verify("plain", ""), auth.ErrInvalidCredentials), ShouldBeTrue)
				So(errors.Is(v.Verify("hashed", "nope"), auth.ErrInvalidCredentials), ShouldBeTrue)
			})
		})

		Convey("When the user is unknown", func() {
			Convey("Then ErrInvalidCredentials should be returned", func() {
				So(errors.Is(v.Verify("ghost", "letmein"), auth.ErrInvalidCredentials), ShouldBeTrue)
			})
		})
	})
}

func TestLimiter(t *testing.T) {
	Convey("Given a limiter of three attempts per minute", t, func() {
		l := auth.NewLimiter(3)

		Convey("When one user exceeds the budget", func() {
			for i := 0; i < 3; i++ {
				So(l.Allow("analyst"), ShouldBeNil)
			}
			err := l.Allow("analyst")

			Convey("Then the next attempt should be rate limited", func() {
				So(errors.Is(err, auth.ErrRateLimited), ShouldBeTrue)
			})

			Convey("And other users should be unaffected", func() {
				So(l.Allow("manager"), ShouldBeNil)
			})
		})
	})

	Convey("Given a disabled limiter", t, func() {
		l := auth.NewLimiter(0)

		Convey("Then attempts should never be limited", func() {
			for i := 0; i < 100; i++ {
				So(l.Allow("analyst"), ShouldBeNil)
			}
		})
	})
}

func TestSessionStore(t *testing.T) {
	Convey("Given a session store", t, func() {
		store, err := auth.NewSessionStore(auth.WithTTL(time.Hour), auth.WithCapacity(100))
		So(err, ShouldBeNil)
		defer store.Close()
		So(store.TTL(), ShouldEqual, time.Hour)

		Convey("When a session is created", func() {
			sess, err := store.Create("analyst")
			So(err, ShouldBeNil)

			Convey("Then it should be found by token", func() {
				So(sess.Token, ShouldNotBeEmpty)
				So(sess.ExpiresAt.Sub(sess.CreatedAt), ShouldEqual, time.Hour)
				got, err := store.Lookup(sess.Token)
				So(err, ShouldBeNil)
				So(got.User, ShouldEqual, "analyst")
			})

			Convey("And revoking it should end it", func() {
				store.Revoke(sess.Token)
				_, err := store.Lookup(sess.Token)
				So(errors.Is(err, auth.ErrNoSession), ShouldBeTrue)
			})
		})

		Convey("When the token is unknown or empty", func() {
			_, err1 := store.Lookup("nope")
			_, err2 := store.Lookup("")

			Convey("Then ErrNoSession should be returned", func() {
				So(errors.Is(err1, auth.ErrNoSession), ShouldBeTrue)
				So(errors.Is(err2, auth.ErrNoSession), ShouldBeTrue)
			})
		})
	})
}

func TestAuthenticator(t *testing.T) {
	Convey("Given an authenticator", t, func() {
		ctx := context.Background()
		store, err := auth.NewSessionStore()
		So(err, ShouldBeNil)
		defer store.Close()
		a := auth.NewAuthenticator(
			auth.NewVerifier(map[string]string{"analyst": "pw"}),
			auth.NewLimiter(2),
			store,
			nil,
		)

		Convey("When logging in with good credentials", func() {
			sess, err := a.Login(ctx, "analyst", "pw")
			So(err, ShouldBeNil)

			Convey("Then the token should authenticate until logout", func() {
				got, err := a.Authenticate(sess.Token)
				So(err, ShouldBeNil)
				So(got.User, ShouldEqual, "analyst")

				a.Logout(ctx, sess.Token)
				_, err = a.Authenticate(sess.Token)
				So(auth.IsAuthError(err), ShouldBeTrue)
			})
		})

		Convey("When logging in with a bad password", func() {
			_, err := a.Login(ctx, "analyst", "wrong")

			Convey("Then it should be an auth error", func() {
				So(errors.Is(err, auth.ErrInvalidCredentials), ShouldBeTrue)
				So(auth.IsAuthError(err), ShouldBeTrue)
			})
		})

		Convey("When retrying past the limit", func() {
			_, _ = a.Login(ctx, "analyst", "wrong")
			_, _ = a.Login(ctx, "analyst", "wrong")
			_, err := a.Login(ctx, "analyst", "pw")

			Convey("Then even the right password should be throttled", func() {
				So(errors.Is(err, auth.ErrRateLimited), ShouldBeTrue)
				So(auth.IsAuthError(err), ShouldBeFalse)
			})
		})
	})
}
