// Package logger provides leveled, component-tagged logging for gridchat.
//
// Every log line carries the subsystem that emitted it ("conn", "engine",
// "wire", ...) so interleaved socket and intent activity stays readable.
package logger

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

type Level int

const (
	DEBUG Level = iota
	INFO
	WARN
	ERROR
)

var levelNames = map[Level]string{
	DEBUG: "DEBUG",
	INFO:  "INFO",
	WARN:  "WARN",
	ERROR: "ERROR",
}

var (
	mu    sync.Mutex
	level = INFO
	out   io.Writer = os.Stderr
)

// SetLevel sets the minimum level that will be written.
func SetLevel(l Level) {
	mu.Lock()
	defer mu.Unlock()
	level = l
}

// SetOutput redirects log output. Used by tests.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	out = w
}

func write(l Level, component, msg string, fields map[string]any) {
	mu.Lock()
	defer mu.Unlock()
	if l < level {
		return
	}
	line := fmt.Sprintf("%s %-5s [%s] %s",
		time.Now().Format(time.RFC3339), levelNames[l], component, msg)
	if len(fields) > 0 {
		if b, err := json.Marshal(fields); err == nil {
			line += " " + string(b)
		}
	}
	fmt.Fprintln(out, line)
}

func DebugC(component, msg string)                         { write(DEBUG, component, msg, nil) }
func DebugCF(component, msg string, fields map[string]any) { write(DEBUG, component, msg, fields) }
func InfoC(component, msg string)                          { write(INFO, component, msg, nil) }
func InfoCF(component, msg string, fields map[string]any)  { write(INFO, component, msg, fields) }
func WarnC(component, msg string)                          { write(WARN, component, msg, nil) }
func WarnCF(component, msg string, fields map[string]any)  { write(WARN, component, msg, fields) }
func ErrorC(component, msg string)                         { write(ERROR, component, msg, nil) }
func ErrorCF(component, msg string, fields map[string]any) { write(ERROR, component, msg, fields) }
