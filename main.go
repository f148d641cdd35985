package main

import (
	"flag"
	"log"
	"os"
	"syscall"
)

func main() {
	// 向分析服务进程发送 SIGHUP，触发日志轮转
	pid := flag.Int("p", os.Getpid(), "分析服务进程的PID")
	flag.Parse()

	err := syscall.Kill(*pid, syscall.SIGHUP)
	if err != nil {
		log.Fatal("发送 SIGHUP 失败:", err)
	}
}
