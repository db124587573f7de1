package testutil

import (
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"strings"
	"testing"
	"time"
)

// Container is a throwaway docker container with one published port on 127.0.0.1.
type Container struct {
	Name string
	Port string
}

type containerSpec struct {
	prefix    string
	image     string
	port      string
	env       []string
	args      []string
	readiness []string
	timeout   time.Duration
	interval  time.Duration
}

// RequireIntegration skips the test unless INTEGRATION_TESTS is set.
func RequireIntegration(t testing.TB) {
	t.Helper()
	if strings.TrimSpace(os.Getenv("INTEGRATION_TESTS")) == "" {
		t.Skip("set INTEGRATION_TESTS=1 to run integration tests (requires docker)")
	}
}

// StartRedis runs redis:7-alpine until the test ends.
func StartRedis(t testing.TB) Container {
	return startContainer(t, containerSpec{
		prefix:    "frontdesk-test-redis",
		image:     "redis:7-alpine",
		port:      "6379",
		readiness: []string{"redis-cli", "ping"},
		timeout:   60 * time.Second,
		interval:  250 * time.Millisecond,
	})
}

// StartMySQL runs mysql:8.0 with an empty database until the test ends. The root password is password.
func StartMySQL(t testing.TB, database string, password string) Container {
	return startContainer(t, containerSpec{
		prefix:    "frontdesk-test-mysql",
		image:     "mysql:8.0",
		port:      "3306",
		env:       []string{"MYSQL_ROOT_PASSWORD=" + password, "MYSQL_DATABASE=" + database},
		args:      []string{"--default-authentication-plugin=mysql_native_password"},
		readiness: []string{"mysqladmin", "ping", "-h", "127.0.0.1", "-p" + password, "--silent"},
		timeout:   120 * time.Second,
		interval:  500 * time.Millisecond,
	})
}

func startContainer(t testing.TB, spec containerSpec) Container {
	t.Helper()
	name := fmt.Sprintf("%s-%d", spec.prefix, time.Now().UnixNano())

	runArgs := []string{"run", "-d", "--name", name, "-p", "127.0.0.1:0:" + spec.port}
	for _, e := range spec.env {
		runArgs = append(runArgs, "-e", e)
	}
	runArgs = append(runArgs, spec.image)
	runArgs = append(runArgs, spec.args...)
	if out, err := docker(runArgs...); err != nil {
		t.Fatalf("start %s: %v\n%s", spec.image, err, out)
	}
	t.Cleanup(func() { _, _ = docker("rm", "-f", name) })

	out, err := docker("port", name, spec.port+"/tcp")
	if err != nil {
		t.Fatalf("docker port %s: %v\n%s", name, err, out)
	}
	port, err := parseHostPort(out)
	if err != nil {
		t.Fatalf("docker port %s: %v", name, err)
	}

	deadline := time.Now().Add(spec.timeout)
	for time.Now().Before(deadline) {
		if _, err := docker(append([]string{"exec", name}, spec.readiness...)...); err == nil {
			return Container{Name: name, Port: port}
		}
		time.Sleep(spec.interval)
	}
	t.Fatalf("%s did not become ready within %s", spec.image, spec.timeout)
	return Container{}
}

var hostPortPattern = regexp.MustCompile(`:(\d+)\s*$`)

// parseHostPort reads the port from the first line of `docker port` output, e.g. "127.0.0.1:49154".
func parseHostPort(out string) (string, error) {
	line := strings.TrimSpace(strings.SplitN(strings.TrimSpace(out), "\n", 2)[0])
	m := hostPortPattern.FindStringSubmatch(line)
	if len(m) != 2 {
		return "", fmt.Errorf("unexpected docker port output: %q", out)
	}
	return m[1], nil
}

func docker(args ...string) (string, error) {
	b, err := exec.Command("docker", args...).CombinedOutput()
	return string(b), err
}
