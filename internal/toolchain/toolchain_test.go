package toolchain

import (
	"bytes"
	"context"
	"errors"
	"slices"
	"strings"
	"sync"
	"testing"
)

type call struct {
	name string
	args []string
}

type fakeExec struct {
	mu      sync.Mutex
	calls   []call
	outputs map[string]string
	fail    map[string]error
}

func (f *fakeExec) record(name string, args []string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call{name, args})
	return name + " " + strings.Join(args, " ")
}

func (f *fakeExec) Run(_ context.Context, name string, args []string) error {
	key := f.record(name, args)
	return f.fail[key]
}

func (f *fakeExec) RunSilent(_ context.Context, name string, args []string) ([]byte, error) {
	key := f.record(name, args)
	if err := f.fail[key]; err != nil {
		return nil, err
	}
	return []byte(f.outputs[key]), nil
}

type fakePrompt struct {
	answer   bool
	question string
}

func (p *fakePrompt) Confirm(q string) (bool, error) {
	p.question = q
	return p.answer, nil
}

func TestCargoProgram(t *testing.T) {
	t.Setenv("CARGO", "")
	if got := CargoProgram(); got != "cargo" {
		t.Errorf("CargoProgram() = %q, want cargo", got)
	}

	t.Setenv("CARGO", "/opt/rust/bin/cargo")
	if got := CargoProgram(); got != "/opt/rust/bin/cargo" {
		t.Errorf("CargoProgram() = %q", got)
	}
}

func TestMissing(t *testing.T) {
	got := Missing(
		[]string{"aarch64-apple-ios", "x86_64-apple-darwin", "aarch64-apple-ios-sim", "aarch64-apple-ios"},
		[]string{"x86_64-apple-darwin", "x86_64-unknown-linux-gnu"},
	)
	want := []string{"aarch64-apple-ios", "aarch64-apple-ios-sim"}
	if !slices.Equal(got, want) {
		t.Errorf("Missing() = %v, want %v", got, want)
	}
}

const installedOutput = "aarch64-apple-darwin\nx86_64-apple-darwin\n\n"

func TestEnsure(t *testing.T) {
	tests := []struct {
		name       string
		triples    []string
		answer     bool
		wantErr    error
		wantPrompt string
		wantAdd    []string
	}{
		{
			name:    "all installed",
			triples: []string{"aarch64-apple-darwin", "x86_64-apple-darwin"},
		},
		{
			name:       "install accepted",
			triples:    []string{"aarch64-apple-darwin", "aarch64-apple-ios", "aarch64-apple-ios-sim"},
			answer:     true,
			wantPrompt: "The targets aarch64-apple-ios, aarch64-apple-ios-sim are missing, do you want to install them?",
			wantAdd:    []string{"target", "add", "aarch64-apple-ios", "aarch64-apple-ios-sim"},
		},
		{
			name:       "install declined",
			triples:    []string{"aarch64-apple-ios"},
			answer:     false,
			wantErr:    ErrInstallDeclined,
			wantPrompt: "The targets aarch64-apple-ios are missing, do you want to install them?",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exec := &fakeExec{outputs: map[string]string{"rustup target list --installed": installedOutput}}
			prompt := &fakePrompt{answer: tt.answer}

			err := NewChecker(exec, prompt).Ensure(context.Background(), tt.triples)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Ensure error = %v, want %v", err, tt.wantErr)
				}
			} else if err != nil {
				t.Fatalf("Ensure error: %v", err)
			}

			if prompt.question != tt.wantPrompt {
				t.Errorf("prompt = %q, want %q", prompt.question, tt.wantPrompt)
			}

			var added []string
			for _, c := range exec.calls {
				if c.name == "rustup" && len(c.args) > 1 && c.args[1] == "add" {
					added = c.args
				}
			}
			if !slices.Equal(added, tt.wantAdd) {
				t.Errorf("rustup add args = %v, want %v", added, tt.wantAdd)
			}
		})
	}
}

func TestConfirm(t *testing.T) {
	for input, want := range map[string]bool{
		"y\n":   true,
		"YES\n": true,
		"n\n":   false,
		"\n":    false,
		"":      false,
	} {
		var out bytes.Buffer
		got, err := confirm(strings.NewReader(input), &out, "Install?")
		if err != nil {
			t.Fatalf("confirm(%q) error: %v", input, err)
		}
		if got != want {
			t.Errorf("confirm(%q) = %v, want %v", input, got, want)
		}
		if out.String() != "Install? [y/N] " {
			t.Errorf("prompt written = %q", out.String())
		}
	}
}

func TestSDKVersions_QueriedOncePerSDK(t *testing.T) {
	exec := &fakeExec{outputs: map[string]string{
		"xcrun --sdk macosx --show-sdk-version":   "14.2\n",
		"xcrun --sdk iphoneos --show-sdk-version": "17.2\n",
	}}
	versions := NewSDKVersions(exec)
	ctx := context.Background()

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if v, err := versions.Get(ctx, "macosx"); err != nil || v != "14.2" {
				t.Errorf("Get(macosx) = %q, %v", v, err)
			}
		}()
	}
	wg.Wait()

	if v, err := versions.Get(ctx, "iphoneos"); err != nil || v != "17.2" {
		t.Errorf("Get(iphoneos) = %q, %v", v, err)
	}

	if len(exec.calls) != 2 {
		t.Errorf("xcrun called %d times, want 2", len(exec.calls))
	}
}

func TestSDKVersions_Invalid(t *testing.T) {
	exec := &fakeExec{outputs: map[string]string{
		"xcrun --sdk watchos --show-sdk-version": "garbage",
	}}
	if _, err := NewSDKVersions(exec).Get(context.Background(), "watchos"); err == nil {
		t.Fatal("expected error for unparsable version")
	}
}
