/*
Copyright (c) YugabyteDB, Inc.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	log "github.com/sirupsen/logrus"
	"github.com/tebeka/atexit"
	"gopkg.in/natefinch/lumberjack.v2"
)

type MyFormatter struct{}

var levelList = []string{
	"PANIC",
	"FATAL",
	"ERROR",
	"WARN",
	"INFO",
	"DEBUG",
	"TRACE",
}

func (mf *MyFormatter) Format(entry *log.Entry) ([]byte, error) {
	level := levelList[int(entry.Level)]
	caller := "-"
	if entry.Caller != nil {
		caller = fmt.Sprintf("%s:%d", filepath.Base(entry.Caller.File), entry.Caller.Line)
	}
	msg := entry.Message
	if id, ok := entry.Data["invocation"]; ok {
		msg = fmt.Sprintf("[%v] %s", id, msg)
	}
	// Example log line:
	// 2022-03-23 12:16:42 INFO pipeline.go:27 [0b7c...] resolved pii-bucket: ...
	line := fmt.Sprintf("%s %s %s %s\n",
		entry.Time.Format("2006-01-02 15:04:05"), level, caller, msg)
	return []byte(line), nil
}

// InitLogging sends the logs to ${logDir}/logs/yb-tokenizer-<cmd>.log, or to
// stderr when logDir is empty.
func InitLogging(logDir string, cmdName string) {
	log.SetReportCaller(true)
	log.SetFormatter(&MyFormatter{})
	if logDir == "" {
		log.SetOutput(os.Stderr)
	} else {
		logFileName := filepath.Join(logDir, "logs", fmt.Sprintf("yb-tokenizer-%s.log", cmdName))

		// logRotator handles scenario where "logs" folder, or the log file does not exist.
		logRotator := &lumberjack.Logger{
			Filename:   logFileName,
			MaxSize:    200, // 200 MB log size before rotation
			MaxBackups: 10,  // Allow upto 10 logs at once before deleting oldest logs.
		}
		log.SetOutput(logRotator)
		atexit.Register(func() {
			logRotator.Close()
		})
	}
	log.Info("Logging initialised.")
	log.Infof("Args: %v", os.Args)
	log.Infof("\n%s", getVersionInfo())
}
