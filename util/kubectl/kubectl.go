// Package kubectl shells out to the kubectl binary for the few operations
// that have no practical client-go equivalent in a test harness, most
// importantly long-running port-forward sessions.
package kubectl

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"syscall"
	"time"

	"k8s.io/klog/v2"
	uexec "k8s.io/utils/exec"
)

// Builder builds and runs one kubectl invocation.
type Builder struct {
	cmd *exec.Cmd
	// appendedEnv contains only AppendEnv(...) values and NOT os.Environ();
	// logging the env we modified is what matters, the inherited defaults
	// are noise.
	appendedEnv []string
	timeout     <-chan time.Time
}

// NewCommand returns a Builder for running kubectl against the given
// kubeconfig and namespace. Both may be empty, in which case kubectl's own
// defaulting applies.
func NewCommand(kubeconfig, namespace string, args ...string) *Builder {
	b := new(Builder)
	b.cmd = exec.Command("kubectl", Args(kubeconfig, namespace, args...)...)
	return b
}

// Args assembles the full kubectl argument list for the given kubeconfig
// and namespace.
func Args(kubeconfig, namespace string, args ...string) []string {
	defaultArgs := []string{}
	if kubeconfig != "" {
		defaultArgs = append(defaultArgs, "--kubeconfig="+kubeconfig)
	}
	if namespace != "" {
		defaultArgs = append(defaultArgs, "--namespace="+namespace)
	}
	return append(defaultArgs, args...)
}

// AppendEnv appends the given environment and returns itself.
func (b *Builder) AppendEnv(env []string) *Builder {
	if b.cmd.Env == nil {
		b.cmd.Env = os.Environ()
	}
	b.cmd.Env = append(b.cmd.Env, env...)
	b.appendedEnv = append(b.appendedEnv, env...)
	return b
}

// WithTimeout sets the given timeout and returns itself.
func (b *Builder) WithTimeout(t <-chan time.Time) *Builder {
	b.timeout = t
	return b
}

// Exec runs the kubectl invocation and returns its stdout.
func (b *Builder) Exec() (string, error) {
	stdout, _, err := b.ExecWithFullOutput()
	return stdout, err
}

// ExecWithFullOutput runs the kubectl invocation and returns its stdout
// and stderr.
func (b *Builder) ExecWithFullOutput() (string, string, error) {
	var stdout, stderr bytes.Buffer
	cmd := b.cmd
	cmd.Stdout, cmd.Stderr = &stdout, &stderr

	if len(b.appendedEnv) > 0 {
		klog.Infof("Running '%s %s %s'", strings.Join(b.appendedEnv, " "), cmd.Path, strings.Join(cmd.Args[1:], " "))
	} else {
		klog.Infof("Running '%s %s'", cmd.Path, strings.Join(cmd.Args[1:], " "))
	}
	if err := cmd.Start(); err != nil {
		return "", "", fmt.Errorf("error starting %v:\nCommand stdout:\n%v\nstderr:\n%v\nerror:\n%v", cmd, cmd.Stdout, cmd.Stderr, err)
	}
	errCh := make(chan error, 1)
	go func() {
		errCh <- cmd.Wait()
	}()
	select {
	case err := <-errCh:
		if err != nil {
			var rc = 127
			if ee, ok := err.(*exec.ExitError); ok {
				rc = int(ee.Sys().(syscall.WaitStatus).ExitStatus())
				klog.Infof("rc: %d", rc)
			}
			return stdout.String(), stderr.String(), uexec.CodeExitError{
				Err:  fmt.Errorf("error running %v:\nCommand stdout:\n%v\nstderr:\n%v\nerror:\n%v", cmd, cmd.Stdout, cmd.Stderr, err),
				Code: rc,
			}
		}
	case <-b.timeout:
		_ = b.cmd.Process.Kill()
		return "", "", fmt.Errorf("timed out waiting for command %v:\nCommand stdout:\n%v\nstderr:\n%v", cmd, cmd.Stdout, cmd.Stderr)
	}
	klog.V(4).Infof("stderr: %q", stderr.String())
	klog.V(4).Infof("stdout: %q", stdout.String())
	return stdout.String(), stderr.String(), nil
}

// Run is a convenience wrapper that builds and executes a kubectl command.
func Run(kubeconfig, namespace string, args ...string) (string, error) {
	return NewCommand(kubeconfig, namespace, args...).Exec()
}
