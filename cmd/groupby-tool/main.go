// Copyright 2021 Matrix Origin
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

package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/matrixorigin/indexedtable/pkg/config"
	"github.com/matrixorigin/indexedtable/pkg/logutil"
	"github.com/matrixorigin/indexedtable/pkg/util"
)

var (
	configFile = flag.String("cfg", "./etc/groupby-tool.toml", "toml configuration of the group-by query")
	inputFile  = flag.String("input", "", "csv file holding the input rows, stdin if empty")
	sortResult = flag.Bool("sort", false, "sort the result by the order-by columns")
	version    = flag.Bool("version", false, "print version information")
)

func main() {
	flag.Parse()
	if *version {
		for name, v := range util.ComponentVersions() {
			fmt.Printf("%s %s\n", name, v)
		}
		return
	}

	cfg, err := config.LoadConfig(*configFile)
	if err != nil {
		panic(fmt.Sprintf("failed to parse config from %s, error: %s", *configFile, err.Error()))
	}
	logutil.SetupMOLogger(&cfg.Log)
	util.LogVersions()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	var in io.Reader = os.Stdin
	if *inputFile != "" {
		f, err := os.Open(*inputFile)
		if err != nil {
			logutil.Fatal("open input failed", zap.String("file", *inputFile), zap.Error(err))
		}
		defer f.Close()
		in = f
	}

	err = run(ctx, cfg, in, os.Stdout, *sortResult)
	_ = logutil.LogClose()
	if err != nil {
		fmt.Fprintf(os.Stderr, "groupby-tool: %v\n", err)
		cancel()
		os.Exit(1)
	}
}
