package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/smartystreets/goconvey/convey"
	"golang.org/x/crypto/bcrypt"
)

const cliModel = `name: mmo
version: "1"
features: [Marketplace_MKT_A, Ad_group_Grp1, Ad_group_Grp2, Spend]
coefficients: [0, 150, 180, 0]
`

const cliUpload = "Marketplace,Ad_group,Spend\nMKT_A,Grp1,100\nMKT_A,Grp2,200\n"

func execute(args []string, stdin string) (string, string, error) {
	var out, errOut bytes.Buffer
	cmd := newRootCmd()
	cmd.SetArgs(args)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), errOut.String(), err
}

func TestScoreCommand(t *testing.T) {
	convey.Convey("Given a model artifact and a spend file", t, func() {
		dir := t.TempDir()
		modelPath := filepath.Join(dir, "model.yaml")
		dataPath := filepath.Join(dir, "spend.csv")
		convey.So(os.WriteFile(modelPath, []byte(cliModel), 0o600), convey.ShouldBeNil)
		convey.So(os.WriteFile(dataPath, []byte(cliUpload), 0o600), convey.ShouldBeNil)

		convey.Convey("When scoring the file", func() {
			out, _, err := execute([]string{"score", "--model", modelPath, "--file", dataPath}, "")

			convey.Convey("Then every group is printed with its ROI and rank", func() {
				convey.So(err, convey.ShouldBeNil)
				lines := strings.Split(strings.TrimSpace(out), "\n")
				convey.So(lines, convey.ShouldHaveLength, 3)
				convey.So(lines[0], convey.ShouldStartWith, "Ad_group")
				convey.So(strings.Fields(lines[1]), convey.ShouldResemble, []string{"Grp1", "MKT_A", "150.00", "100.00", "0.5000", "1"})
				convey.So(strings.Fields(lines[2]), convey.ShouldResemble, []string{"Grp2", "MKT_A", "180.00", "200.00", "-0.1000", "2"})
			})
		})

		convey.Convey("When printing only the top groups as JSON from stdin", func() {
			out, _, err := execute([]string{"score", "--model", modelPath, "--file", "-", "--top", "--json"}, cliUpload)

			convey.Convey("Then only the rank 1 group is emitted", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(out, convey.ShouldContainSubstring, `"Ad_group": "Grp1"`)
				convey.So(out, convey.ShouldNotContainSubstring, "Grp2")
			})
		})

		convey.Convey("When a group has no spend", func() {
			zero := filepath.Join(dir, "zero.csv")
			convey.So(os.WriteFile(zero, []byte(cliUpload+"MKT_A,Grp1,-100\n"), 0o600), convey.ShouldBeNil)
			out, errOut, err := execute([]string{"score", "--model", modelPath, "--file", zero}, "")

			convey.Convey("Then its ROI is undefined and a warning is printed", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(out, convey.ShouldContainSubstring, "undefined")
				convey.So(errOut, convey.ShouldContainSubstring, "warning:")
			})

			convey.Convey("And the fail policy rejects the batch", func() {
				_, _, err := execute([]string{"score", "--model", modelPath, "--file", zero, "--zero-spend", "fail"}, "")
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(err.Error(), convey.ShouldStartWith, "aggregation_error")
			})
		})

		convey.Convey("When the policy flag is unknown", func() {
			_, _, err := execute([]string{"score", "--model", modelPath, "--file", dataPath, "--ranking", "olympic"}, "")
			convey.So(err, convey.ShouldNotBeNil)
		})

		convey.Convey("When the model artifact is missing", func() {
			_, _, err := execute([]string{"score", "--model", filepath.Join(dir, "none.yaml"), "--file", dataPath}, "")
			convey.So(err, convey.ShouldNotBeNil)
		})

		convey.Convey("When --file is omitted", func() {
			_, _, err := execute([]string{"score", "--model", modelPath}, "")
			convey.So(err, convey.ShouldNotBeNil)
		})
	})
}

func TestHashPasswordCommand(t *testing.T) {
	convey.Convey("Given the hash-password command", t, func() {
		out, _, err := execute([]string{"hash-password", "s3cret"}, "")

		convey.Convey("Then it prints a bcrypt hash of the password", func() {
			convey.So(err, convey.ShouldBeNil)
			hash := strings.TrimSpace(out)
			convey.So(hash, convey.ShouldStartWith, "$2")
			convey.So(bcrypt.CompareHashAndPassword([]byte(hash), []byte("s3cret")), convey.ShouldBeNil)
		})
	})
}

func TestSmokeCommand(t *testing.T) {
	convey.Convey("Given the smoke command", t, func() {
		convey.Convey("When --user is omitted", func() {
			_, _, err := execute([]string{"smoke", "--url", "http://127.0.0.1:1"}, "")
			convey.So(err, convey.ShouldNotBeNil)
		})

		convey.Convey("When the server is unhealthy", func() {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusServiceUnavailable)
			}))
			defer srv.Close()

			out, _, err := execute([]string{"smoke", "--url", srv.URL, "--user", "analyst", "--password", "pw", "--timeout", "2s"}, "")

			convey.Convey("Then it fails before uploading anything", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(err.Error(), convey.ShouldContainSubstring, "health check")
				convey.So(out, convey.ShouldContainSubstring, "submitted=0")
			})
		})
	})
}
