package commands_test

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/ardanlabs/relaybench/app/tooling/relaybench/commands"
	"github.com/ardanlabs/relaybench/business/sys/database"
	"github.com/ardanlabs/relaybench/foundation/events"
	"go.uber.org/zap"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

func Test_Root(t *testing.T) {
	env := commands.New(zap.NewNop().Sugar(), commands.Config{}, events.New())

	tt := []struct {
		name    string
		args    []string
		wantErr bool
	}{
		{"missing", []string{}, false},
		{"unknown", []string{"bogus"}, true},
	}

	t.Log("Given the need to dispatch the relaybench commands.")
	{
		for testID, test := range tt {
			tf := func(t *testing.T) {
				root := env.Root()

				var out bytes.Buffer
				root.SetOut(&out)
				root.SetErr(&out)
				root.SetArgs(test.args)

				err := root.ExecuteContext(context.Background())
				if (err != nil) != test.wantErr {
					t.Fatalf("\t%s\tTest %d:\tShould get an error %v : %v", failed, testID, test.wantErr, err)
				}
				t.Logf("\t%s\tTest %d:\tShould get an error %v.", success, testID, test.wantErr)

				for _, name := range []string{"migrate", "import", "deploy", "setup", "start", "submission", "dispute"} {
					if !strings.Contains(out.String(), name) {
						t.Fatalf("\t%s\tTest %d:\tShould list command %q in the usage.", failed, testID, name)
					}
				}
				t.Logf("\t%s\tTest %d:\tShould print the usage with every command.", success, testID)
			}

			t.Run(test.name, tf)
		}
	}
}

func Test_EnvState(t *testing.T) {
	env := commands.New(zap.NewNop().Sugar(), commands.Config{DeploymentsFile: t.TempDir() + "/missing.json"}, events.New())

	t.Log("Given the need to report the state before a command runs.")
	{
		if _, ok := env.Progress(); ok {
			t.Fatalf("\t%s\tShould report no experiment.", failed)
		}
		t.Logf("\t%s\tShould report no experiment.", success)

		if env.Deployments() != nil {
			t.Fatalf("\t%s\tShould report no deployments.", failed)
		}
		t.Logf("\t%s\tShould report no deployments.", success)

		if err := env.StatusCheck(context.Background()); err != nil {
			t.Fatalf("\t%s\tShould report ready without a database : %v", failed, err)
		}
		t.Logf("\t%s\tShould report ready without a database.", success)

		root := env.Root()
		root.SetOut(new(bytes.Buffer))
		root.SetArgs([]string{"setup"})
		if err := root.ExecuteContext(context.Background()); err == nil {
			t.Fatalf("\t%s\tShould fail setup without a deployments file.", failed)
		}
		t.Logf("\t%s\tShould fail setup without a deployments file.", success)
	}
}

func Test_ExecuteInterrupted(t *testing.T) {
	cfg := commands.Config{
		DB: database.Config{User: "postgres", Password: "postgres", Host: "localhost:1", Name: "postgres", DisableTLS: true},
	}
	env := commands.New(zap.NewNop().Sugar(), cfg, events.New())
	defer env.Close()

	t.Log("Given the need to stop a command on a signal.")
	{
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		if err := env.Execute(ctx, []string{"migrate"}); err != nil {
			t.Fatalf("\t%s\tShould treat a cancelled command as a clean shutdown : %v", failed, err)
		}
		t.Logf("\t%s\tShould treat a cancelled command as a clean shutdown.", success)

		if err := env.Execute(context.Background(), []string{"bogus"}); err == nil {
			t.Fatalf("\t%s\tShould still fail an unknown command.", failed)
		}
		t.Logf("\t%s\tShould still fail an unknown command.", success)
	}
}
