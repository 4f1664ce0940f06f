/*
 Licensed under the Apache License, Version 2.0 (the "License");
 you may not use this file except in compliance with the License.
 You may obtain a copy of the License at

     https://www.apache.org/licenses/LICENSE-2.0

 Unless required by applicable law or agreed to in writing, software
 distributed under the License is distributed on an "AS IS" BASIS,
 WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 See the License for the specific language governing permissions and
 limitations under the License.
*/

package log

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
)

type LogLevel int

const (
	LogPrefix     = "[go-spl] "
	ErrorPrefix   = "[error] "
	WarningPrefix = "[warn] "
	InfoPrefix    = "[info] "
	DebugPrefix   = "[debug] "
	HelpLevels    = "Must be one of: error, warning, info, debug."
)

const (
	ErrorLevel LogLevel = iota
	WarningLevel
	InfoLevel
	DebugLevel
)

var levelNames = map[string]LogLevel{
	"error":   ErrorLevel,
	"warning": WarningLevel,
	"info":    InfoLevel,
	"debug":   DebugLevel,
}

var levelPrefixes = map[LogLevel]string{
	ErrorLevel:   ErrorPrefix,
	WarningLevel: WarningPrefix,
	InfoLevel:    InfoPrefix,
	DebugLevel:   DebugPrefix,
}

// ErrWrongLevel is returned for a level name that is not one of HelpLevels
type ErrWrongLevel struct {
	Level string
}

func (e ErrWrongLevel) Error() string {
	return fmt.Sprintf("Wrong log level %q. %s", e.Level, HelpLevels)
}

type Logger struct {
	level LogLevel
	*log.Logger
}

var logger = &Logger{
	level:  InfoLevel,
	Logger: log.New(os.Stderr, LogPrefix, log.LstdFlags),
}

// ParseLevel maps a level name from the config or the command line to LogLevel
func ParseLevel(strLevel string) (LogLevel, error) {
	level, ok := levelNames[strings.ToLower(strLevel)]
	if !ok {
		return InfoLevel, ErrWrongLevel{Level: strLevel}
	}
	return level, nil
}

func SetLevel(strLevel string) error {
	level, err := ParseLevel(strLevel)
	if err != nil {
		return err
	}
	logger.level = level
	return nil
}

func Init(out io.Writer, strLevel string) {
	logger.SetOutput(out)
	if err := SetLevel(strLevel); err != nil {
		panic(err)
	}
}

// Enabled reports whether messages of the given level are emitted
func Enabled(level LogLevel) bool {
	return logger.level >= level
}

func output(level LogLevel, format string, v ...interface{}) {
	if logger.level >= level {
		logger.Println(levelPrefixes[level] + fmt.Sprintf(format, v...))
	}
}

func Error(format string, v ...interface{}) {
	output(ErrorLevel, format, v...)
}

func Warning(format string, v ...interface{}) {
	output(WarningLevel, format, v...)
}

func Info(format string, v ...interface{}) {
	output(InfoLevel, format, v...)
}

func Debug(format string, v ...interface{}) {
	output(DebugLevel, format, v...)
}

type levelWriter LogLevel

func (w levelWriter) Write(p []byte) (int, error) {
	output(LogLevel(w), "%s", strings.TrimRight(string(p), "\n"))
	return len(p), nil
}

// Writer returns an io.Writer emitting every write as one message of the
// given level
func Writer(level LogLevel) io.Writer {
	return levelWriter(level)
}
