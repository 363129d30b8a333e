package main

import (
	"os"

	"github.com/joho/godotenv"
)

func main() {
	// .env 不存在时忽略，环境变量仍可直接注入
	_ = godotenv.Load()

	if err := NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
