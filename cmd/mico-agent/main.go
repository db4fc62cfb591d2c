package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"mico/internal/agent"
	"mico/internal/api"
	"mico/internal/cli"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger()
	cfg := cli.LoadAndValidateConfig(logger)

	client := api.New(cfg.APIBaseURL, nil)

	var parser agent.Parser
	if cfg.OpenAIKey != "" {
		parser = agent.NewLLMParser(cfg.OpenAIKey, cfg.OpenAIBase, cfg.OpenAIModel)
		logger.Info("Agent using LLM parser", "model", cfg.OpenAIModel)
	} else {
		parser = agent.NewRulesParser()
		logger.Info("Agent using rules parser - no OPENAI_API_KEY provided")
	}

	a := agent.New(client, parser)
	ctx := context.Background()

	// One-shot mode: the request is the command line.
	if len(os.Args) > 1 {
		answer, err := a.Handle(ctx, strings.Join(os.Args[1:], " "))
		if err != nil {
			logger.Error("Request failed", "error", err)
			os.Exit(1)
		}
		fmt.Println(answer)
		return
	}

	// Interactive mode: one request per line.
	fmt.Println("mico agent - describe a transaction or ask about your spending (ctrl-d to quit)")
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		answer, err := a.Handle(ctx, line)
		if err != nil {
			fmt.Println("error:", err)
			continue
		}
		fmt.Println(answer)
	}
	fmt.Println()
}
