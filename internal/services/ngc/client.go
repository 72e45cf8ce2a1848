package ngc

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"nemoctl/internal/config"
)

// JobInfo captures the fields nemoctl needs from NGC job output.
type JobInfo struct {
	ID     string
	Name   string
	Status string
}

// Submission describes a batch job to run on the cluster.
type Submission struct {
	JobName     string
	CommandLine string
}

// Executor abstracts command execution for testability.
type Executor interface {
	Run(ctx context.Context, binary string, args []string, onStdout func(string)) error
}

// Option configures the client.
type Option func(*Client)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(exec Executor) Option {
	return func(c *Client) {
		if exec != nil {
			c.exec = exec
		}
	}
}

// Client wraps NGC CLI interactions.
type Client struct {
	binary        string
	org           string
	team          string
	instance      string
	image         string
	resultPath    string
	datasetMounts []string
	submitTimeout time.Duration
	queryTimeout  time.Duration
	exec          Executor
}

// New constructs an NGC client from configuration.
func New(cfg *config.Config, opts ...Option) (*Client, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	client := &Client{
		binary:        cfg.NGCBinary(),
		org:           cfg.NGC.Org,
		team:          cfg.NGC.Team,
		instance:      cfg.NGC.Instance,
		image:         cfg.NGC.Image,
		resultPath:    cfg.NGC.ResultPath,
		datasetMounts: append([]string(nil), cfg.NGC.DatasetMounts...),
		submitTimeout: time.Duration(cfg.NGC.SubmitTimeout) * time.Second,
		queryTimeout:  time.Duration(cfg.NGC.QueryTimeout) * time.Second,
		exec:          commandExecutor{},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// SubmitArgs returns the argument vector for a batch submission without
// executing it. `nemoctl launch --dry-run` prints exactly this.
func (c *Client) SubmitArgs(sub Submission) []string {
	args := []string{"batch", "run",
		"--name", sub.JobName,
		"--instance", c.instance,
		"--image", c.image,
		"--result", c.resultPath,
	}
	for _, mount := range c.datasetMounts {
		args = append(args, "--datasetid", mount)
	}
	args = append(args, "--commandline", sub.CommandLine)
	return c.withScope(args)
}

// Submit runs the batch submission and parses the created job from the
// CLI's job information block.
func (c *Client) Submit(ctx context.Context, sub Submission) (JobInfo, error) {
	if strings.TrimSpace(sub.JobName) == "" {
		return JobInfo{}, errors.New("job name required")
	}
	if strings.TrimSpace(sub.CommandLine) == "" {
		return JobInfo{}, errors.New("command line required")
	}

	runCtx := ctx
	if c.submitTimeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, c.submitTimeout)
		defer cancel()
	}

	var info JobInfo
	if err := c.exec.Run(runCtx, c.binary, c.SubmitArgs(sub), func(line string) {
		parseJobLine(&info, line)
	}); err != nil {
		return JobInfo{}, fmt.Errorf("ngc batch run: %w", err)
	}
	if info.ID == "" {
		return JobInfo{}, errors.New("ngc batch run produced no job id; check CLI output format")
	}
	if info.Name == "" {
		info.Name = sub.JobName
	}
	return info, nil
}

// JobInfo fetches current details for a job id.
func (c *Client) JobInfo(ctx context.Context, id string) (JobInfo, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return JobInfo{}, errors.New("job id required")
	}

	runCtx := ctx
	if c.queryTimeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, c.queryTimeout)
		defer cancel()
	}

	args := c.withScope([]string{"batch", "get", id})
	var info JobInfo
	if err := c.exec.Run(runCtx, c.binary, args, func(line string) {
		parseJobLine(&info, line)
	}); err != nil {
		return JobInfo{}, fmt.Errorf("ngc batch get %s: %w", id, err)
	}
	if info.ID == "" {
		info.ID = id
	}
	return info, nil
}

func (c *Client) withScope(args []string) []string {
	if c.org != "" {
		args = append(args, "--org", c.org)
	}
	if c.team != "" {
		args = append(args, "--team", c.team)
	}
	return args
}

// parseJobLine extracts fields from the CLI's indented "Key: Value" output.
func parseJobLine(info *JobInfo, line string) {
	key, value, ok := strings.Cut(strings.TrimSpace(line), ":")
	if !ok {
		return
	}
	value = strings.TrimSpace(value)
	if value == "" {
		return
	}
	switch strings.ToLower(strings.TrimSpace(key)) {
	case "id":
		if info.ID == "" {
			info.ID = value
		}
	case "name":
		if info.Name == "" {
			info.Name = value
		}
	case "status":
		info.Status = value
	}
}

type commandExecutor struct{}

func (commandExecutor) Run(ctx context.Context, binary string, args []string, onStdout func(string)) error {
	cmd := exec.CommandContext(ctx, binary, args...) //nolint:gosec
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("stderr pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start command: %w", err)
	}

	var wg sync.WaitGroup
	var scanErr error
	var once sync.Once

	scan := func(r io.Reader, forward func(string)) {
		defer wg.Done()
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			forward(scanner.Text())
		}
		if err := scanner.Err(); err != nil {
			once.Do(func() {
				scanErr = err
			})
		}
	}

	forward := func(line string) {
		if onStdout != nil {
			onStdout(line)
			return
		}
		fmt.Fprintln(os.Stderr, line)
	}

	wg.Add(2)
	go scan(stdout, forward)
	go scan(stderr, forward)

	wg.Wait()
	if scanErr != nil {
		_ = cmd.Process.Kill()
		return fmt.Errorf("scan output: %w", scanErr)
	}

	if err := cmd.Wait(); err != nil {
		return fmt.Errorf("wait command: %w", err)
	}
	return nil
}
