package runtime

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"syscall"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/client"
	"github.com/docker/docker/errdefs"
	"github.com/docker/docker/pkg/stdcopy"

	"digital.vasic.missions/pkg/logging"
)

// keepAliveCommand keeps the sandbox running between probes.
const keepAliveCommand = "tail -f /dev/null"

// DockerSandbox implements Sandbox against a Docker-Engine-API
// compatible daemon. The connection string comes from DOCKER_HOST
// (unix socket, named pipe, or tcp), so any API-compatible
// alternative reachable over the same protocol works unchanged.
type DockerSandbox struct {
	cli *client.Client
	log logging.Logger
}

// DockerOption configures the DockerSandbox.
type DockerOption func(*DockerSandbox)

// WithDockerLogger sets the logger.
func WithDockerLogger(log logging.Logger) DockerOption {
	return func(d *DockerSandbox) { d.log = log }
}

// NewDockerSandbox connects to the daemon using the environment
// configuration (DOCKER_HOST et al) with API version negotiation.
func NewDockerSandbox(opts ...DockerOption) (*DockerSandbox, error) {
	cli, err := client.NewClientWithOpts(
		client.FromEnv,
		client.WithAPIVersionNegotiation(),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to sandbox daemon: %w", err)
	}

	d := &DockerSandbox{cli: cli, log: logging.NullLogger{}}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// Create provisions and starts a sandbox container. The image is
// pulled if missing; a stale container holding the requested name is
// removed first.
func (d *DockerSandbox) Create(ctx context.Context, spec SandboxSpec) (Handle, error) {
	if spec.Image == "" {
		return Handle{}, NewError(KindInvalidSpec, "create", "image reference is empty", nil)
	}

	if spec.Name != "" {
		err := d.cli.ContainerRemove(ctx, spec.Name, container.RemoveOptions{Force: true})
		if err != nil && !errdefs.IsNotFound(err) {
			d.log.Debug("stale sandbox removal failed",
				logging.F("name", spec.Name),
				logging.Err(err),
			)
		}
	}

	if err := d.ensureImage(ctx, spec.Image); err != nil {
		return Handle{}, err
	}

	created, err := d.cli.ContainerCreate(ctx,
		&container.Config{
			Image:      spec.Image,
			Cmd:        strings.Fields(keepAliveCommand),
			WorkingDir: spec.WorkingDir,
			Tty:        true,
			OpenStdin:  true,
		},
		&container.HostConfig{},
		nil, nil, spec.Name,
	)
	if err != nil {
		return Handle{}, classifyDaemonErr("create", err)
	}

	if err := d.cli.ContainerStart(ctx, created.ID, container.StartOptions{}); err != nil {
		// The container exists but never started; remove it so a
		// retried create does not collide on the name.
		_ = d.cli.ContainerRemove(ctx, created.ID, container.RemoveOptions{Force: true})
		return Handle{}, classifyDaemonErr("create", err)
	}

	name := spec.Name
	if name == "" {
		if info, inspectErr := d.cli.ContainerInspect(ctx, created.ID); inspectErr == nil {
			name = strings.TrimPrefix(info.Name, "/")
		}
	}

	d.log.Info("sandbox created",
		logging.F("id", shortID(created.ID)),
		logging.F("image", spec.Image),
	)
	return Handle{ID: created.ID, Name: name}, nil
}

// ensureImage pulls the image when it is not present locally.
func (d *DockerSandbox) ensureImage(ctx context.Context, ref string) error {
	_, _, err := d.cli.ImageInspectWithRaw(ctx, ref)
	if err == nil {
		return nil
	}
	if !errdefs.IsNotFound(err) {
		return classifyDaemonErr("create", err)
	}

	reader, err := d.cli.ImagePull(ctx, ref, image.PullOptions{})
	if err != nil {
		if errdefs.IsNotFound(err) {
			return NewError(KindNotFound, "create",
				fmt.Sprintf("image not found: %s", ref), err)
		}
		return classifyDaemonErr("create", err)
	}
	defer reader.Close()

	// The pull completes only once the progress stream is drained.
	if _, err := io.Copy(io.Discard, reader); err != nil {
		return classifyDaemonErr("create", err)
	}
	return nil
}

// Exec runs command inside the sandbox through "sh -c" for
// portability across images, and captures demuxed output plus the
// exit code.
func (d *DockerSandbox) Exec(ctx context.Context, handle Handle, command string) (ExecResult, error) {
	execResp, err := d.cli.ContainerExecCreate(ctx, handle.ID, container.ExecOptions{
		Cmd:          []string{"sh", "-c", command},
		AttachStdout: true,
		AttachStderr: true,
	})
	if err != nil {
		return ExecResult{}, classifyExecErr(handle, err)
	}

	attach, err := d.cli.ContainerExecAttach(ctx, execResp.ID, container.ExecAttachOptions{})
	if err != nil {
		return ExecResult{}, classifyExecErr(handle, err)
	}
	defer attach.Close()

	var stdout, stderr bytes.Buffer
	done := make(chan error, 1)
	go func() {
		_, copyErr := stdcopy.StdCopy(&stdout, &stderr, attach.Reader)
		done <- copyErr
	}()

	select {
	case <-ctx.Done():
		return ExecResult{}, NewError(KindTransient, "exec",
			"daemon call timed out", ctx.Err())
	case copyErr := <-done:
		if copyErr != nil {
			return ExecResult{}, classifyExecErr(handle, copyErr)
		}
	}

	inspect, err := d.cli.ContainerExecInspect(ctx, execResp.ID)
	if err != nil {
		return ExecResult{}, classifyExecErr(handle, err)
	}

	d.log.Debug("command executed",
		logging.F("sandbox", shortID(handle.ID)),
		logging.F("exit_code", inspect.ExitCode),
	)
	return ExecResult{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		ExitCode: inspect.ExitCode,
	}, nil
}

// Stop halts the sandbox. A sandbox that is already gone is not an
// error.
func (d *DockerSandbox) Stop(ctx context.Context, handle Handle) error {
	timeout := 10
	err := d.cli.ContainerStop(ctx, handle.ID, container.StopOptions{Timeout: &timeout})
	if err != nil && !errdefs.IsNotFound(err) {
		return classifyDaemonErr("stop", err)
	}
	return nil
}

// Destroy force-removes the sandbox. A sandbox that is already gone
// is not an error.
func (d *DockerSandbox) Destroy(ctx context.Context, handle Handle) error {
	err := d.cli.ContainerRemove(ctx, handle.ID, container.RemoveOptions{Force: true})
	if err != nil && !errdefs.IsNotFound(err) {
		return classifyDaemonErr("destroy", err)
	}
	d.log.Debug("sandbox destroyed", logging.F("id", shortID(handle.ID)))
	return nil
}

// Ping checks daemon reachability.
func (d *DockerSandbox) Ping(ctx context.Context) error {
	if _, err := d.cli.Ping(ctx); err != nil {
		return NewError(KindTransient, "ping", "daemon unreachable", err)
	}
	return nil
}

// Close releases the daemon client.
func (d *DockerSandbox) Close() error {
	return d.cli.Close()
}

func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}

// classifyExecErr distinguishes a vanished sandbox (permanent) from
// daemon trouble.
func classifyExecErr(handle Handle, err error) error {
	if errdefs.IsNotFound(err) {
		return NewError(KindNotFound, "exec",
			fmt.Sprintf("sandbox %s no longer exists", shortID(handle.ID)), err)
	}
	return classifyDaemonErr("exec", err)
}

// classifyDaemonErr maps daemon and transport failures onto the
// error taxonomy.
func classifyDaemonErr(op string, err error) error {
	switch {
	case errdefs.IsNotFound(err):
		return NewError(KindNotFound, op, "", err)
	case errdefs.IsInvalidParameter(err) || errdefs.IsConflict(err):
		return NewError(KindInvalidSpec, op, "", err)
	case errdefs.IsUnavailable(err) || errdefs.IsDeadline(err):
		return NewError(KindTransient, op, "", err)
	case errors.Is(err, context.DeadlineExceeded):
		return NewError(KindTransient, op, "daemon call timed out", err)
	case isConnectionErr(err):
		return NewError(KindTransient, op, "daemon connection failed", err)
	default:
		return NewError(KindUnknown, op, "", err)
	}
}

// isConnectionErr detects socket-level failures that indicate the
// daemon dropped the connection or is not accepting new ones.
func isConnectionErr(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	return errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.EPIPE) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, io.EOF)
}
