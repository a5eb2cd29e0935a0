package open

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"
)

// Editor returns $EDITOR, falling back to less.
func Editor() string {
	if e := os.Getenv("EDITOR"); e != "" {
		return e
	}
	return "less"
}

// Conversation opens a session log in the user's editor at lineNum. A
// lineNum below 1 opens the file at the top.
func Conversation(filePath string, lineNum int) error {
	if _, err := os.Stat(filePath); err != nil {
		return fmt.Errorf("file not found: %s", filePath)
	}
	if lineNum < 1 {
		lineNum = 1
	}

	cmd := editorCommand(Editor(), filePath, lineNum)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

// LastLine counts the lines of a file, so callers can jump to the most
// recent record.
func LastLine(filePath string) (int, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	r := bufio.NewReader(f)
	buf := make([]byte, 32*1024)
	lines, last := 0, byte('\n')
	for {
		n, err := r.Read(buf)
		if n > 0 {
			lines += bytes.Count(buf[:n], []byte{'\n'})
			last = buf[n-1]
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return 0, err
		}
	}
	// unterminated final line
	if last != '\n' {
		lines++
	}
	return max(lines, 1), nil
}

func editorCommand(editor, filePath string, lineNum int) *exec.Cmd {
	fields := strings.Fields(editor)
	if len(fields) == 0 {
		fields = []string{"less"}
	}
	name, extra := fields[0], fields[1:]

	var args []string
	switch {
	case strings.Contains(name, "vim") || strings.Contains(name, "nvim"):
		args = []string{fmt.Sprintf("+%d", lineNum), filePath}
	case strings.Contains(name, "code"):
		args = []string{"--goto", filePath + ":" + strconv.Itoa(lineNum)}
	case strings.Contains(name, "less"):
		args = []string{"+" + strconv.Itoa(lineNum), filePath}
	default:
		args = []string{filePath}
	}
	return exec.Command(name, append(extra, args...)...)
}
