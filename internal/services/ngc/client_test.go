package ngc_test

import (
	"context"
	"strings"
	"testing"

	"nemoctl/internal/config"
	"nemoctl/internal/services/ngc"
)

type fakeExecutor struct {
	binary string
	args   []string
	lines  []string
	err    error
}

func (f *fakeExecutor) Run(_ context.Context, binary string, args []string, onStdout func(string)) error {
	f.binary = binary
	f.args = append([]string(nil), args...)
	for _, line := range f.lines {
		if onStdout != nil {
			onStdout(line)
		}
	}
	return f.err
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.NGC.Org = "myorg"
	cfg.NGC.DatasetMounts = []string{"68792:/data"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("config invalid: %v", err)
	}
	return &cfg
}

func TestSubmitBuildsExpectedArgs(t *testing.T) {
	exec := &fakeExecutor{lines: []string{
		"----------------------------------------",
		" Job Information",
		"   Id: 2291863",
		"   Name: nmt-en-de-abc123",
		"   Status: QUEUED",
	}}
	client, err := ngc.New(testConfig(t), ngc.WithExecutor(exec))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	info, err := client.Submit(context.Background(), ngc.Submission{
		JobName:     "nmt-en-de-abc123",
		CommandLine: "set -e -x; wandb login ABC123; python train.py trainer.gpus=1",
	})
	if err != nil {
		t.Fatalf("Submit returned error: %v", err)
	}

	if exec.binary != "ngc" {
		t.Fatalf("unexpected binary: %q", exec.binary)
	}
	joined := strings.Join(exec.args, " ")
	for _, want := range []string{
		"batch run",
		"--name nmt-en-de-abc123",
		"--instance dgx1v.32g.1.norm",
		"--image nvcr.io/nvidia/pytorch:21.03-py3",
		"--result /results",
		"--datasetid 68792:/data",
		"--org myorg",
	} {
		if !strings.Contains(joined, want) {
			t.Errorf("args missing %q: %v", want, exec.args)
		}
	}

	// The command string is one argv entry, not re-split by us.
	idx := -1
	for i, arg := range exec.args {
		if arg == "--commandline" {
			idx = i
			break
		}
	}
	if idx < 0 || idx+1 >= len(exec.args) {
		t.Fatalf("missing --commandline value: %v", exec.args)
	}
	if !strings.Contains(exec.args[idx+1], "wandb login ABC123") {
		t.Fatalf("command line not passed through verbatim: %q", exec.args[idx+1])
	}

	if info.ID != "2291863" {
		t.Fatalf("unexpected job id: %q", info.ID)
	}
	if info.Status != "QUEUED" {
		t.Fatalf("unexpected status: %q", info.Status)
	}
}

func TestSubmitRequiresJobOutput(t *testing.T) {
	exec := &fakeExecutor{lines: []string{"no job block here"}}
	client, err := ngc.New(testConfig(t), ngc.WithExecutor(exec))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	if _, err := client.Submit(context.Background(), ngc.Submission{
		JobName:     "job",
		CommandLine: "true",
	}); err == nil {
		t.Fatal("expected error when CLI output lacks a job id")
	}
}

func TestSubmitValidatesInput(t *testing.T) {
	client, err := ngc.New(testConfig(t), ngc.WithExecutor(&fakeExecutor{}))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	if _, err := client.Submit(context.Background(), ngc.Submission{CommandLine: "true"}); err == nil {
		t.Fatal("expected error for missing job name")
	}
	if _, err := client.Submit(context.Background(), ngc.Submission{JobName: "job"}); err == nil {
		t.Fatal("expected error for missing command line")
	}
}

func TestJobInfoParsesStatus(t *testing.T) {
	exec := &fakeExecutor{lines: []string{
		"   Id: 2291863",
		"   Name: nmt-en-de-abc123",
		"   Status: FINISHED_SUCCESS",
		"   Status Details: ",
	}}
	client, err := ngc.New(testConfig(t), ngc.WithExecutor(exec))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	info, err := client.JobInfo(context.Background(), "2291863")
	if err != nil {
		t.Fatalf("JobInfo returned error: %v", err)
	}
	if info.Status != "FINISHED_SUCCESS" {
		t.Fatalf("unexpected status: %q", info.Status)
	}
	joined := strings.Join(exec.args, " ")
	if !strings.Contains(joined, "batch get 2291863") {
		t.Fatalf("unexpected args: %v", exec.args)
	}
}
