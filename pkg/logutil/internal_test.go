// Copyright 2022 Matrix Origin
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package logutil

import (
	"context"
	"path"
	"regexp"
	"testing"

	"github.com/lni/goutils/leaktest"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/matrixorigin/indexedtable/pkg/common/moerr"
)

func TestLogConfig_getter(t *testing.T) {
	tests := []struct {
		name       string
		cfg        LogConfig
		entry      zapcore.Entry
		wantLevel  zap.AtomicLevel
		wantSyncer zapcore.WriteSyncer
		wantFormat string
	}{
		{
			name: "console",
			cfg: LogConfig{
				Level:        "debug",
				Format:       "console",
				DisableStore: true,
			},
			entry:      zapcore.Entry{Level: zapcore.DebugLevel, Message: "console msg"},
			wantLevel:  zap.NewAtomicLevelAt(zap.DebugLevel),
			wantSyncer: getConsoleSyncer(),
			wantFormat: "console",
		},
		{
			name: "bad level falls back to info",
			cfg: LogConfig{
				Level:  "verbose",
				Format: "json",
			},
			entry:      zapcore.Entry{Level: zapcore.InfoLevel, Message: "json msg"},
			wantLevel:  zap.NewAtomicLevelAt(zap.InfoLevel),
			wantSyncer: getConsoleSyncer(),
			wantFormat: "json",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tt.cfg
			require.Equal(t, tt.wantLevel.Level(), cfg.getLevel().Level())
			require.Equal(t, 2, len(cfg.getOptions()))
			require.Equal(t, tt.wantSyncer, cfg.getSyncer())
			wantMsg, _ := getLoggerEncoder(tt.wantFormat).EncodeEntry(tt.entry, nil)
			gotMsg, _ := cfg.getEncoder().EncodeEntry(tt.entry, nil)
			require.Equal(t, wantMsg.String(), gotMsg.String())
			require.Equal(t, 1, len(cfg.getSinks()))
		})
	}
}

func TestStacktraceLevel(t *testing.T) {
	require.Equal(t, zapcore.ErrorLevel, (&LogConfig{StacktraceLevel: "error"}).getStacktraceLevel())
	require.Equal(t, zapcore.FatalLevel, (&LogConfig{StacktraceLevel: "nope"}).getStacktraceLevel())
}

func TestSetupMOLogger(t *testing.T) {
	defer leaktest.AfterTest(t)()
	for _, format := range []string{"console", "json"} {
		t.Run(format, func(t *testing.T) {
			SetupMOLogger(&LogConfig{
				Level:           zapcore.DebugLevel.String(),
				Format:          format,
				MaxSize:         512,
				DisableStore:    true,
				StacktraceLevel: "panic",
			})
			require.True(t, GetGlobalLogger().Core().Enabled(zapcore.DebugLevel))
		})
	}
}

func TestSetupMOLogger_file(t *testing.T) {
	filename := path.Join(t.TempDir(), "table.log")
	SetupMOLogger(&LogConfig{
		Level:    zapcore.InfoLevel.String(),
		Format:   "json",
		Filename: filename,
		MaxSize:  1,
	})
	Info("resize finished", zap.Int("numResizes", 3))
	require.NoError(t, LogClose())
	require.False(t, GetGlobalLogger().Core().Enabled(zapcore.DebugLevel))
}

func TestSetupMOLogger_panic(t *testing.T) {
	conf := &LogConfig{
		Level:  zapcore.DebugLevel.String(),
		Format: "panic",
	}
	defer func() {
		if err := recover(); err != nil {
			require.Equal(t, moerr.NewInternalError(context.TODO(), "unsupported log format: %s", conf.Format), err)
		} else {
			t.Errorf("not receive panic")
		}
	}()
	SetupMOLogger(conf)
}

func TestSetupMOLogger_panicDir(t *testing.T) {
	conf := &LogConfig{
		Level:    zapcore.DebugLevel.String(),
		Format:   "json",
		Filename: t.TempDir(),
		MaxSize:  512,
	}
	defer func() {
		if err := recover(); err != nil {
			require.Equal(t, "log file can't be a directory", err)
		} else {
			t.Errorf("not receive panic")
		}
	}()
	SetupMOLogger(conf)
}

func Test_getLoggerEncoder(t *testing.T) {
	tests := []struct {
		name       string
		format     string
		entry      zapcore.Entry
		wantOutput *regexp.Regexp
	}{
		{
			name:   "console",
			format: "console",
			entry:  zapcore.Entry{Level: zapcore.DebugLevel, Message: "console msg"},
			// like: 0001/01/01 00:00:00.000000 +0000 DEBUG console msg
			wantOutput: regexp.MustCompile(`\d{4}/\d{2}/\d{2} (\d{2}:{0,1}){3}\.\d{6} \+\d{4} DEBUG console msg`),
		},
		{
			name:       "json",
			format:     "json",
			entry:      zapcore.Entry{Level: zapcore.DebugLevel, Message: "json msg"},
			wantOutput: regexp.MustCompile(`\{.*"level":"DEBUG".*"msg":"json msg".*\}`),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := getLoggerEncoder(tt.format)
			require.NotNil(t, got)
			buf, err := got.EncodeEntry(tt.entry, nil)
			require.Nil(t, err)
			require.Equal(t, 1, len(tt.wantOutput.FindAll(buf.Bytes(), -1)))
		})
	}
}

func TestHelpersWriteToGlobalLogger(t *testing.T) {
	old := GetGlobalLogger()
	defer replaceGlobalLogger(old)

	core, logs := observer.New(zapcore.DebugLevel)
	replaceGlobalLogger(zap.New(core))

	Debug("debug msg")
	Info("info msg", zap.String("table", "t1"))
	Warnf("warn %d", 1)
	Errorf("error %s", "x")

	require.Equal(t, 4, logs.Len())
	require.Equal(t, 1, logs.FilterMessage("info msg").FilterField(zap.String("table", "t1")).Len())
	require.Equal(t, 1, logs.FilterMessage("warn 1").Len())
}
