// Copyright (c) 2026 ToeiRei
// rdeploy - source tree deployment helper
// This source code is licensed under the MIT license found in the LICENSE file.

package deploy

import (
	"slices"
	"strings"
	"testing"

	"github.com/toeirei/rdeploy/internal/exclude"
)

func testPlan() Plan {
	return Plan{
		Source:      "/home/me/dp4c",
		Target:      Target{User: "dumitru", Host: "host1", Path: "/home/dumitru/work/dp4c"},
		Credentials: Credentials{Password: "noviflow", Mode: PasswordArg},
		Patterns:    exclude.Default(),
		Tools:       DefaultTools(),
	}
}

func TestBuildCommand_ArgumentVector(t *testing.T) {
	cmd := BuildCommand(testPlan())

	want := []string{"sshpass", "-p", "noviflow", "rsync", "--delete"}
	for _, p := range exclude.Default() {
		want = append(want, "--exclude", p)
	}
	want = append(want, "-av", "/home/me/dp4c/", "dumitru@host1:/home/dumitru/work/dp4c/")

	if got := cmd.Argv(); !slices.Equal(got, want) {
		t.Fatalf("Argv() =\n%q\nwant\n%q", got, want)
	}
	if len(cmd.Env) != 0 {
		t.Fatalf("arg mode must not set env, got %v", cmd.Env)
	}
}

func TestBuildCommand_PasswordFollowsInjector(t *testing.T) {
	s := BuildCommand(testPlan()).String()
	if !strings.HasPrefix(s, "sshpass -p noviflow rsync ") {
		t.Fatalf("command must start with the password injector and password, got %q", s)
	}
}

func TestCommandString_QuotesEveryPattern(t *testing.T) {
	s := BuildCommand(testPlan()).String()
	for _, p := range []string{
		"deploy.py", "build.sh", "*.log", ".idea/", ".vimprj/", ".git/",
		".gitignore", "__pycache__/", "*.pyc", "*.bak",
	} {
		if !strings.Contains(s, "--exclude '"+p+"'") {
			t.Errorf("missing quoted exclude for %q in %q", p, s)
		}
	}
	if n := strings.Count(s, "--exclude "); n != 10 {
		t.Errorf("expected 10 exclude flags, got %d", n)
	}
	if !strings.HasSuffix(s, " -av /home/me/dp4c/ dumitru@host1:/home/dumitru/work/dp4c/") {
		t.Errorf("unexpected tail: %q", s)
	}
}

func TestCommandRedacted_HidesPassword(t *testing.T) {
	cmd := BuildCommand(testPlan())
	r := cmd.Redacted()
	if strings.Contains(r, "noviflow") {
		t.Fatalf("password leaked into %q", r)
	}
	if !strings.HasPrefix(r, "sshpass -p '******' rsync") {
		t.Fatalf("unexpected redaction: %q", r)
	}
	// Argv still carries the real password.
	if cmd.Argv()[2] != "noviflow" {
		t.Fatalf("argv lost the password: %q", cmd.Argv())
	}
}

func TestBuildCommand_PasswordModes(t *testing.T) {
	p := testPlan()
	p.Credentials.Mode = PasswordEnv
	cmd := BuildCommand(p)
	if cmd.Args[0] != "-e" || cmd.Args[1] != "rsync" {
		t.Fatalf("env mode args: %q", cmd.Args)
	}
	if !slices.Equal(cmd.Env, []string{"SSHPASS=noviflow"}) {
		t.Fatalf("env mode env: %q", cmd.Env)
	}
	if strings.Contains(cmd.String(), "noviflow") {
		t.Fatalf("env mode must keep password off the command line: %q", cmd.String())
	}

	p.Credentials = Credentials{Mode: PasswordFile, File: "/run/secrets/pw"}
	cmd = BuildCommand(p)
	if !slices.Equal(cmd.Args[:3], []string{"-f", "/run/secrets/pw", "rsync"}) {
		t.Fatalf("file mode args: %q", cmd.Args)
	}
}

func TestBuildCommand_CustomPortAndTools(t *testing.T) {
	p := testPlan()
	p.Target.Port = 2222
	p.Tools = Tools{Rsync: "/opt/bin/rsync", Sshpass: "/opt/bin/sshpass"}
	p.Patterns = nil
	cmd := BuildCommand(p)

	want := []string{"/opt/bin/sshpass", "-p", "noviflow", "/opt/bin/rsync", "--delete",
		"-e", "ssh -p 2222", "-av", "/home/me/dp4c/", "dumitru@host1:/home/dumitru/work/dp4c/"}
	if got := cmd.Argv(); !slices.Equal(got, want) {
		t.Fatalf("Argv() = %q, want %q", got, want)
	}
	if !strings.Contains(cmd.String(), "-e 'ssh -p 2222'") {
		t.Fatalf("ssh option not quoted: %q", cmd.String())
	}
}

func TestBuildCommand_PortInHost(t *testing.T) {
	p := testPlan()
	p.Target.Host = "host1:2222"
	p.Patterns = nil
	argv := BuildCommand(p).Argv()

	if !slices.Contains(argv, "ssh -p 2222") {
		t.Fatalf("port from host not passed to ssh: %q", argv)
	}
	if got := argv[len(argv)-1]; got != "dumitru@host1:/home/dumitru/work/dp4c/" {
		t.Fatalf("port leaked into remote path: %q", got)
	}
}

func TestBuildCommand_TrailingSlashes(t *testing.T) {
	p := testPlan()
	p.Source = "/src/"
	p.Target.Path = "/dst/"
	argv := BuildCommand(p).Argv()
	if argv[len(argv)-2] != "/src/" || argv[len(argv)-1] != "dumitru@host1:/dst/" {
		t.Fatalf("unexpected paths: %q", argv[len(argv)-2:])
	}
}

func TestShellQuote(t *testing.T) {
	tests := []struct{ in, want string }{
		{"", "''"},
		{"plain-path/x.y", "plain-path/x.y"},
		{"has space", "'has space'"},
		{"it's", `'it'\''s'`},
		{"$(rm -rf /)", "'$(rm -rf /)'"},
	}
	for _, tt := range tests {
		if got := shellQuote(tt.in); got != tt.want {
			t.Errorf("shellQuote(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestTarget_AddrAndRemote(t *testing.T) {
	tests := []struct {
		target Target
		addr   string
		remote string
	}{
		{Target{User: "u", Host: "h", Path: "/p"}, "h:22", "u@h:/p/"},
		{Target{User: "u", Host: "h", Port: 2200, Path: "/p/"}, "h:2200", "u@h:/p/"},
		{Target{User: "u", Host: "h:2022", Path: "/"}, "h:2022", "u@h:/"},
		{Target{User: "u", Host: "h:2022", Port: 2200, Path: "/p"}, "h:2022", "u@h:/p/"},
		{Target{User: "u", Host: "::1", Path: "/p"}, "[::1]:22", "u@[::1]:/p/"},
		{Target{User: "u", Host: "[::1]:2200", Path: "/p"}, "[::1]:2200", "u@[::1]:/p/"},
	}
	for _, tt := range tests {
		if got := tt.target.Addr(); got != tt.addr {
			t.Errorf("Addr() = %q, want %q", got, tt.addr)
		}
		if got := tt.target.Remote(); got != tt.remote {
			t.Errorf("Remote() = %q, want %q", got, tt.remote)
		}
	}
}

func TestParsePasswordModeAndTransport(t *testing.T) {
	if m, err := ParsePasswordMode(""); err != nil || m != PasswordArg {
		t.Fatalf("empty mode: %v %v", m, err)
	}
	if m, err := ParsePasswordMode("ENV"); err != nil || m != PasswordEnv {
		t.Fatalf("ENV mode: %v %v", m, err)
	}
	if _, err := ParsePasswordMode("stdin"); err == nil {
		t.Fatalf("expected error for unknown mode")
	}
	if tr, err := ParseTransport("sftp"); err != nil || tr != TransportSFTP {
		t.Fatalf("sftp transport: %v %v", tr, err)
	}
	if _, err := ParseTransport("scp"); err == nil {
		t.Fatalf("expected error for unknown transport")
	}
}
