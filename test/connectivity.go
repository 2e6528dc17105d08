// Command connectivity checks that the configured narration services
// answer before a game night starts: the model service must list the
// configured model and, when speech is enabled, the TTS provider must
// synthesize a sample line.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"dndmaster-go/src/configs"
	"dndmaster-go/src/core/providers/llm"
	"dndmaster-go/src/core/providers/tts"

	_ "dndmaster-go/src/core/providers/llm/ollama"
	_ "dndmaster-go/src/core/providers/llm/openai"
	_ "dndmaster-go/src/core/providers/tts/edge"
	_ "dndmaster-go/src/core/providers/tts/sherpa"
)

func main() {
	fmt.Println("=== connectivity check ===")

	config, path, err := configs.LoadConfig()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	fmt.Printf("config: %s\n", path)

	ok := checkLLM(config)
	ok = checkTTS(config) && ok

	if !ok {
		os.Exit(1)
	}
	fmt.Println("all services reachable")
}

func checkLLM(config *configs.Config) bool {
	name := config.SelectedModule["LLM"]
	entry, found := config.LLM[name]
	if !found {
		fmt.Printf("LLM: no entry %q in config\n", name)
		return false
	}
	baseURL := entry.BaseURL
	if baseURL == "" {
		baseURL = config.Server.BaseURL
	}
	provider, err := llm.Create(entry.Type, &llm.Config{
		Type:      entry.Type,
		ModelName: entry.ModelName,
		BaseURL:   baseURL,
		APIKey:    entry.APIKey,
	})
	if err != nil {
		fmt.Printf("LLM: create failed: %v\n", err)
		return false
	}

	ctx, cancel := context.WithTimeout(context.Background(), config.ConnectTimeout())
	defer cancel()
	models, err := provider.ListModels(ctx)
	if err != nil {
		fmt.Printf("LLM: %s unreachable: %v\n", baseURL, err)
		return false
	}
	fmt.Printf("LLM: %s up, %d models\n", baseURL, len(models))

	for _, m := range models {
		if m == entry.ModelName {
			fmt.Printf("LLM: model %s available\n", entry.ModelName)
			return true
		}
	}
	fmt.Printf("LLM: model %s is NOT available, pull it first\n", entry.ModelName)
	return false
}

func checkTTS(config *configs.Config) bool {
	name := config.SelectedModule["TTS"]
	if name == "" {
		fmt.Println("TTS: disabled, skipping")
		return true
	}
	entry, found := config.TTS[name]
	if !found {
		fmt.Printf("TTS: no entry %q in config\n", name)
		return false
	}
	provider, err := tts.Create(entry.Type, &tts.Config{
		Type:      entry.Type,
		Voice:     entry.Voice,
		Format:    entry.Format,
		OutputDir: entry.OutputDir,
		Cluster:   entry.Cluster,
	}, true)
	if err != nil {
		fmt.Printf("TTS: create failed: %v\n", err)
		return false
	}
	defer provider.Cleanup()

	start := time.Now()
	file, err := provider.ToTTS("The adventure begins.")
	if err != nil {
		fmt.Printf("TTS: synthesis failed: %v\n", err)
		return false
	}
	fmt.Printf("TTS: synthesized %s in %s\n", file, time.Since(start).Round(time.Millisecond))
	return true
}
