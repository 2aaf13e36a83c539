// Package main 提供解析守护进程的命令行客户端 resolvctl
//
// 用法：
//
//	resolvctl [-config path] [-timeout 1s] register <name> <endpoint>
//	resolvctl [-config path] [-timeout 1s] lookup <name>
//	resolvctl [-config path] [-timeout 1s] unregister <name>
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	resolver "github.com/dep2p/go-resolver"
	"github.com/dep2p/go-resolver/config"
	"github.com/dep2p/go-resolver/pkg/lib/log"
	"github.com/dep2p/go-resolver/pkg/types"
)

// 退出码
const (
	exitOK       = 0
	exitFailure  = 1
	exitUsage    = 2
	exitNotFound = 3
)

var errUsage = errors.New("usage")

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("resolvctl", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configFile := fs.String("config", "", "配置文件路径（为空使用内置默认配置）")
	addr := fs.String("addr", "", "守护进程地址 host:port（覆盖配置）")
	timeout := fs.Duration("timeout", time.Second, "请求超时")
	verbose := fs.Bool("v", false, "输出调试日志")
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}

	if *verbose {
		log.Setup(stderr, log.LevelDebug, log.FormatText)
	} else {
		log.SetLevel(log.LevelWarn)
	}

	cfg, err := config.LoadFile(*configFile)
	if err == nil {
		err = config.ApplyEnvOverrides(cfg)
	}
	if err != nil {
		fmt.Fprintf(stderr, "配置错误: %v\n", err)
		return exitFailure
	}
	clientCfg := resolver.ConfigFromUnified(cfg)
	if *addr != "" {
		clientCfg.DaemonAddr = *addr
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	err = execute(ctx, clientCfg, fs.Args(), stdout)
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, errUsage):
		fmt.Fprintln(stderr, "用法: resolvctl [flags] register <name> <endpoint> | lookup <name> | unregister <name>")
		return exitUsage
	case errors.Is(err, resolver.ErrNotFound):
		fmt.Fprintln(stderr, err)
		return exitNotFound
	default:
		fmt.Fprintf(stderr, "%v (status %s)\n", err, resolver.StatusOf(err))
		return exitFailure
	}
}

func execute(ctx context.Context, cfg resolver.Config, args []string, stdout io.Writer) error {
	if len(args) < 2 {
		return errUsage
	}
	cmd, name := args[0], args[1]

	var endpoint types.Endpoint
	switch {
	case cmd == "register" && len(args) == 3:
		ep, err := types.ParseEndpoint(args[2])
		if err != nil {
			return err
		}
		endpoint = ep
	case (cmd == "lookup" || cmd == "unregister") && len(args) == 2:
	default:
		return errUsage
	}

	c, err := resolver.Open(ctx, cfg)
	if err != nil {
		return err
	}
	defer c.Close()

	switch cmd {
	case "register":
		if err := c.Register(ctx, name, endpoint); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "%s -> %s\n", name, endpoint)
	case "lookup":
		ep, err := c.Lookup(ctx, name)
		if err != nil {
			return err
		}
		fmt.Fprintln(stdout, ep)
	case "unregister":
		if err := c.Unregister(ctx, name); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "%s removed\n", name)
	}
	return nil
}
