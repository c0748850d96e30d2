package eval_test

import (
	"bytes"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"src.cmk.sh/pkg/diag"
	"src.cmk.sh/pkg/eval"
	"src.cmk.sh/pkg/testutil"
)

func configure(t *testing.T, layout testutil.Dir) (ev *eval.Evaler, stderr, diagnostics *bytes.Buffer, err error) {
	t.Helper()
	dir := testutil.TempDir(t)
	testutil.ApplyDirIn(layout, dir)
	stderr, diagnostics = &bytes.Buffer{}, &bytes.Buffer{}
	ev = eval.New(eval.Config{
		Stderr:    stderr,
		Messenger: diag.NewStreamMessenger(diagnostics, diag.MessengerOptions{}),
		Environ:   []string{},
	})
	err = ev.Configure(dir, filepath.Join(dir, "build"))
	return ev, stderr, diagnostics, err
}

func TestConfigure_Project(t *testing.T) {
	ev, stderr, diagnostics, err := configure(t, testutil.Dir{
		"CMakeLists.txt": testutil.Dedent(`
			cmake_minimum_required(VERSION 3.20)
			project(Demo VERSION 1.2.3 LANGUAGES NONE)
			cmake_language(DEFER CALL message end)
			message("${PROJECT_NAME} ${PROJECT_VERSION_MINOR} ${Demo_IS_TOP_LEVEL}")
			add_subdirectory(sub)
			message("${FROM_SUB} ${PROJECT_NAME}")
			`),
		"sub": testutil.Dir{
			"CMakeLists.txt": testutil.Dedent(`
				project(Sub)
				message("${PROJECT_NAME} ${CMAKE_PROJECT_NAME} ${Sub_IS_TOP_LEVEL}")
				set(FROM_SUB yes PARENT_SCOPE)
				`),
		},
	})
	if err != nil {
		t.Fatalf("got error %v, diagnostics %q", err, diagnostics)
	}
	if diagnostics.Len() > 0 {
		t.Errorf("got diagnostics %q", diagnostics)
	}
	if want := "Demo 2 ON\nSub Demo OFF\nyes Demo\nend\n"; stderr.String() != want {
		t.Errorf("got output %q, want %q", stderr, want)
	}
	if e, ok := ev.State().Cache.Get("CMAKE_PROJECT_VERSION"); !ok || e.Value != "1.2.3" {
		t.Errorf("got CMAKE_PROJECT_VERSION entry %+v, %v", e, ok)
	}
	if files := ev.ListFiles(); len(files) != 2 || !strings.HasSuffix(files[1], "sub/CMakeLists.txt") {
		t.Errorf("got list files %q", files)
	}
	top := ev.Top()
	if got := top.BinaryDir(); !strings.HasSuffix(got, "/build") {
		t.Errorf("got binary dir %q", got)
	}
}

func TestConfigure_SubdirectoryProperties(t *testing.T) {
	_, stderr, diagnostics, err := configure(t, testutil.Dir{
		"CMakeLists.txt": testutil.Dedent(`
			cmake_minimum_required(VERSION 3.20)
			project(Demo LANGUAGES NONE)
			add_subdirectory(a)
			get_property(subs DIRECTORY PROPERTY SUBDIRECTORIES)
			string(REGEX MATCH "/a$" m "${subs}")
			message("${m}")
			get_property(v DIRECTORY a PROPERTY FROM_A)
			message("${v}")
			`),
		"a": testutil.Dir{
			"CMakeLists.txt": "set_property(DIRECTORY PROPERTY FROM_A set-in-a)\n",
		},
	})
	if err != nil {
		t.Fatalf("got error %v, diagnostics %q", err, diagnostics)
	}
	if want := "/a\nset-in-a\n"; stderr.String() != want {
		t.Errorf("got output %q, want %q", stderr, want)
	}
}

func TestConfigure_MissingProject(t *testing.T) {
	_, stderr, diagnostics, err := configure(t, testutil.Dir{
		"CMakeLists.txt": "message(${PROJECT_NAME})\n",
	})
	if err != nil {
		t.Fatalf("got error %v", err)
	}
	if want := "Project\n"; stderr.String() != want {
		t.Errorf("got output %q, want %q", stderr, want)
	}
	for _, want := range []string{"No cmake_minimum_required command is present.", "No project() command is present."} {
		if !strings.Contains(diagnostics.String(), want) {
			t.Errorf("diagnostics %q don't contain %q", diagnostics, want)
		}
	}
}

func TestConfigure_Errors(t *testing.T) {
	_, _, diagnostics, err := configure(t, testutil.Dir{})
	if !errors.Is(err, eval.ErrFailed) {
		t.Errorf("got error %v, want ErrFailed", err)
	}
	if want := "does not appear to contain CMakeLists.txt."; !strings.Contains(diagnostics.String(), want) {
		t.Errorf("diagnostics %q don't contain %q", diagnostics, want)
	}

	_, _, diagnostics, err = configure(t, testutil.Dir{
		"CMakeLists.txt": "cmake_minimum_required(VERSION 3.20)\nproject(P LANGUAGES NONE)\nadd_subdirectory(nope)\n",
	})
	if !errors.Is(err, eval.ErrFailed) {
		t.Errorf("got error %v, want ErrFailed", err)
	}
	if want := `given source "nope" which is not an existing directory.`; !strings.Contains(diagnostics.String(), want) {
		t.Errorf("diagnostics %q don't contain %q", diagnostics, want)
	}
}
