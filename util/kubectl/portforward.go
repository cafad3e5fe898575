package kubectl

import (
	"context"
	"fmt"
	"net"
	"os/exec"
	"time"

	"k8s.io/apimachinery/pkg/util/wait"
	"k8s.io/klog/v2"
)

const (
	readyPollInterval = time.Second
	readyPollTimeout  = 30 * time.Second
)

// PortForwarder keeps a `kubectl port-forward` session to a Service open
// for the lifetime of a test.
type PortForwarder struct {
	Kubeconfig string
	Namespace  string
	Service    string
	LocalPort  int
	RemotePort int

	cmd *exec.Cmd
}

// ForwardService starts forwarding localPort to the named Service's
// remotePort and waits until the local end accepts connections. The
// returned forwarder must be stopped by the caller.
func ForwardService(ctx context.Context, kubeconfig, namespace, service string, localPort, remotePort int) (*PortForwarder, error) {
	pf := &PortForwarder{
		Kubeconfig: kubeconfig,
		Namespace:  namespace,
		Service:    service,
		LocalPort:  localPort,
		RemotePort: remotePort,
	}
	if err := pf.Start(ctx); err != nil {
		return nil, err
	}
	return pf, nil
}

// Start launches the port-forward session and blocks until the local port
// is reachable or the readiness timeout expires.
func (pf *PortForwarder) Start(ctx context.Context) error {
	args := Args(pf.Kubeconfig, pf.Namespace,
		"port-forward",
		fmt.Sprintf("svc/%s", pf.Service),
		fmt.Sprintf("%d:%d", pf.LocalPort, pf.RemotePort),
	)
	cmd := exec.Command("kubectl", args...)
	klog.Infof("Starting 'kubectl %v'", args)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start port-forward to svc/%s: %w", pf.Service, err)
	}
	pf.cmd = cmd

	if err := pf.waitReady(ctx); err != nil {
		pf.Stop()
		return err
	}
	return nil
}

// Addr returns the local address the remote port is forwarded to.
func (pf *PortForwarder) Addr() string {
	return fmt.Sprintf("localhost:%d", pf.LocalPort)
}

// URL returns an http URL for the local end of the forward.
func (pf *PortForwarder) URL() string {
	return "http://" + pf.Addr()
}

// Stop terminates the port-forward session. Safe to call more than once.
func (pf *PortForwarder) Stop() {
	if pf.cmd == nil || pf.cmd.Process == nil {
		return
	}
	klog.Infof("Stopping port-forward to svc/%s", pf.Service)
	_ = pf.cmd.Process.Kill()
	_ = pf.cmd.Wait()
	pf.cmd = nil
}

func (pf *PortForwarder) waitReady(ctx context.Context) error {
	err := wait.PollUntilContextTimeout(ctx, readyPollInterval, readyPollTimeout, true, func(ctx context.Context) (bool, error) {
		// Bail out early if kubectl already exited, e.g. because the
		// Service does not exist.
		if pf.cmd.ProcessState != nil {
			return false, fmt.Errorf("port-forward to svc/%s exited: %v", pf.Service, pf.cmd.ProcessState)
		}
		conn, err := net.DialTimeout("tcp", pf.Addr(), readyPollInterval)
		if err != nil {
			return false, nil
		}
		_ = conn.Close()
		return true, nil
	})
	if err != nil {
		return fmt.Errorf("port-forward to svc/%s did not become ready: %w", pf.Service, err)
	}
	return nil
}
