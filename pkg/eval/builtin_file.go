package eval

import (
	"bytes"
	"encoding/hex"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"src.cmk.sh/pkg/diag"
)

func init() {
	addBuiltin("file", Func(fileCommand))
	addBuiltin("configure_file", Func(configureFileCommand))
}

// Describes why a file operation failed, like strerror does.
func describeError(err error) string {
	var pathErr *fs.PathError
	if errors.As(err, &pathErr) {
		err = pathErr.Err
	}
	s := err.Error()
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// Resolves a path relative to the current source directory.
func (d *Directory) sourcePath(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(d.SourceDir(), path)
}

// Resolves a path relative to the current binary directory.
func (d *Directory) binaryPath(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(d.BinaryDir(), path)
}

func fileCommand(st *Status, args []string) error {
	if len(args) < 2 {
		return errors.New("must be called with at least two arguments.")
	}
	d := st.Dir()
	switch args[0] {
	case "READ":
		return fileRead(d, args)
	case "WRITE":
		return fileWrite(d, args, false)
	case "APPEND":
		return fileWrite(d, args, true)
	}
	return errors.New("does not recognize sub-command " + args[0])
}

func fileRead(d *Directory, args []string) error {
	if len(args) < 3 {
		return errors.New("READ must be called with at least two additional arguments")
	}
	path, out := d.sourcePath(args[1]), args[2]
	offset, limit := int64(0), int64(-1)
	hexOutput := false
	for i := 3; i < len(args); i++ {
		switch args[i] {
		case "OFFSET", "LIMIT":
			if i+1 == len(args) {
				return errors.New("READ " + args[i] + " given no value")
			}
			n, err := strconv.ParseInt(args[i+1], 10, 64)
			if err != nil {
				return errors.New("READ " + args[i] + ` given invalid value "` + args[i+1] + `"`)
			}
			if args[i] == "OFFSET" {
				offset = n
			} else {
				limit = n
			}
			i++
		case "HEX":
			hexOutput = true
		default:
			return errors.New(`READ given unknown argument "` + args[i] + `"`)
		}
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return errors.New("failed to open for reading (" + describeError(err) + "):\n  " + path)
	}
	if offset > int64(len(content)) {
		offset = int64(len(content))
	}
	content = content[offset:]
	if limit >= 0 && limit < int64(len(content)) {
		content = content[:limit]
	}
	if hexOutput {
		d.AddDefinition(out, hex.EncodeToString(content))
	} else {
		d.AddDefinition(out, string(content))
	}
	return nil
}

func fileWrite(d *Directory, args []string, appendMode bool) error {
	path := d.sourcePath(args[1])
	if fi, err := os.Stat(path); err == nil && fi.IsDir() {
		return errors.New("failed to open for writing (Is a directory):\n  " + path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o777); err != nil {
		return errors.New("failed to create directory (" + describeError(err) + "):\n  " + filepath.Dir(path))
	}
	flag := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	if appendMode {
		flag = os.O_WRONLY | os.O_CREATE | os.O_APPEND
	}
	f, err := os.OpenFile(path, flag, 0o666)
	if err != nil {
		return errors.New("failed to open for writing (" + describeError(err) + "):\n  " + path)
	}
	_, err = f.WriteString(strings.Join(args[2:], ""))
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return errors.New("write failed (" + describeError(err) + "):\n  " + path)
	}
	logger.Println("wrote", path)
	return nil
}

func configureFileCommand(st *Status, args []string) error {
	if len(args) < 2 {
		return errors.New("called with incorrect number of arguments, expected 2")
	}
	d := st.Dir()
	input := d.sourcePath(args[0])
	if fi, err := os.Stat(input); err == nil && fi.IsDir() {
		return errors.New("input location\n  " + input + "\nis a directory but a file was expected.")
	}
	output := d.binaryPath(args[1])
	if fi, err := os.Stat(output); err == nil && fi.IsDir() {
		output = filepath.Join(output, filepath.Base(input))
	}

	copyOnly, atOnly, escape := false, false, false
	newline := ""
	for i := 2; i < len(args); i++ {
		switch args[i] {
		case "COPYONLY":
			copyOnly = true
		case "@ONLY":
			atOnly = true
		case "ESCAPE_QUOTES":
			escape = true
		case "NEWLINE_STYLE":
			if i+1 == len(args) {
				return errors.New("NEWLINE_STYLE must set a style: LF, CRLF, UNIX, DOS, or WIN32")
			}
			i++
			switch args[i] {
			case "LF", "UNIX":
				newline = "\n"
			case "CRLF", "DOS", "WIN32":
				newline = "\r\n"
			default:
				return errors.New("NEWLINE_STYLE sets an unknown style, only LF, CRLF, UNIX, DOS, and WIN32 are supported")
			}
		default:
			d.IssueMessage(diag.AuthorWarning, "configure_file called with unknown argument(s):\n  "+args[i])
		}
	}
	if copyOnly && newline != "" {
		return errors.New("COPYONLY could not be used in combination with NEWLINE_STYLE")
	}

	content, err := os.ReadFile(input)
	if err != nil {
		return errors.New("Problem configuring file\n  " + input + "\n" + describeError(err))
	}
	fi, err := os.Stat(input)
	if err != nil {
		return errors.New("Problem configuring file\n  " + input + "\n" + describeError(err))
	}
	if !copyOnly {
		s, err := d.ConfigureString(string(content), atOnly, escape)
		if err != nil {
			d.reportExpandError(err)
			return ErrReported
		}
		if newline != "" {
			s = strings.ReplaceAll(s, "\r\n", "\n")
			if newline != "\n" {
				s = strings.ReplaceAll(s, "\n", newline)
			}
		}
		content = []byte(s)
	}

	if old, err := os.ReadFile(output); err == nil && bytes.Equal(old, content) {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(output), 0o777); err != nil {
		return errors.New("Problem configuring file\n  " + output + "\n" + describeError(err))
	}
	if err := os.WriteFile(output, content, fi.Mode().Perm()); err != nil {
		return errors.New("Problem configuring file\n  " + output + "\n" + describeError(err))
	}
	logger.Println("configured", input, "to", output)
	return nil
}
