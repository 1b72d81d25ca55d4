package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meikuraledutech/pipeline"
	"github.com/meikuraledutech/pipeline/postgres"
)

func main() {
	ctx := context.Background()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL is not set")
	}

	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		log.Fatalf("connect: %v", err)
	}
	defer pool.Close()

	// Wire up the postgres implementation behind the Store interface.
	var store pipeline.Store = postgres.New(pool)

	// 1. Create tables
	if err := store.CreateSchema(ctx); err != nil {
		log.Fatalf("schema: %v", err)
	}
	fmt.Println("schema created")

	// ── Save a snapshot ───────────────────────────────────────────────
	p := &pipeline.Pipeline{
		ID:   "support-bot",
		Name: "Support Bot",
		Nodes: []pipeline.Node{
			{ID: "customInput-1", Type: "customInput", Data: map[string]any{"inputName": "question"}},
			{ID: "llm-1", Type: "llm", Data: map[string]any{"model": "gpt-4"}},
			{ID: "customOutput-1", Type: "customOutput", Data: map[string]any{"outputName": "answer"}},
		},
		Edges: []pipeline.Edge{
			{Source: "customInput-1", Target: "llm-1"},
			{Source: "llm-1", Target: "customOutput-1"},
		},
	}

	saved, err := store.SavePipeline(ctx, p)
	if err != nil {
		log.Fatalf("save pipeline: %v", err)
	}
	fmt.Println("pipeline saved")
	printJSON(saved)

	report(ctx, store, "support-bot")

	// ── Granular: wire the output back into the LLM ───────────────────
	edgeID, err := store.AddEdge(ctx, "support-bot", &pipeline.Edge{
		Source: "customOutput-1",
		Target: "llm-1",
	})
	if err != nil {
		log.Fatalf("add edge: %v", err)
	}
	fmt.Printf("\nadded edge: %s\n", edgeID)

	report(ctx, store, "support-bot")

	// ── Granular: remove it again ─────────────────────────────────────
	if err := store.DeleteEdge(ctx, "support-bot", edgeID); err != nil {
		log.Fatalf("delete edge: %v", err)
	}
	report(ctx, store, "support-bot")

	// ── Cleanup ───────────────────────────────────────────────────────
	if err := store.DeletePipeline(ctx, "support-bot"); err != nil {
		log.Fatalf("delete: %v", err)
	}
	fmt.Println("\npipeline deleted")
}

func report(ctx context.Context, store pipeline.Store, id string) {
	p, err := store.GetPipeline(ctx, id)
	if err != nil {
		log.Fatalf("get pipeline: %v", err)
	}
	res, err := pipeline.Analyze(p.Nodes, p.Edges)
	if err != nil {
		log.Fatalf("analyze: %v", err)
	}

	fmt.Printf("\n%s: %d nodes, %d edges, DAG: %t\n", p.Name, res.NumNodes, res.NumEdges, res.IsDAG)
	if res.Cycles != nil {
		path := append(res.Cycles.CyclePath, res.Cycles.CyclePath[0])
		fmt.Printf("cycle: %s\n", strings.Join(path, " → "))
	}
}

func printJSON(v any) {
	out, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(out))
}
