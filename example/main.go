package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/meikuraledutech/architex"
	"github.com/meikuraledutech/architex/canvas"
	"github.com/meikuraledutech/architex/filestore"
	"github.com/meikuraledutech/architex/postgres"
)

func main() {
	ctx := context.Background()

	// Postgres when DATABASE_URL is set, otherwise a directory of JSON files.
	var store architex.StateStore
	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		pool, err := pgxpool.New(ctx, dbURL)
		if err != nil {
			log.Fatalf("connect: %v", err)
		}
		defer pool.Close()

		pg := postgres.New(pool)
		if err := pg.CreateSchema(ctx); err != nil {
			log.Fatalf("schema: %v", err)
		}
		fmt.Println("schema created")
		store = pg
	} else {
		dir, err := os.MkdirTemp("", "architex-example-")
		if err != nil {
			log.Fatalf("temp dir: %v", err)
		}
		defer os.RemoveAll(dir)
		store = filestore.New(dir)
		fmt.Println("using file store in", dir)
	}

	// ── Build a diagram with palette drops ────────────────────────────
	c := canvas.New()
	web, _ := c.Drop("nextjs", architex.Position{X: 100, Y: 100})
	api, _ := c.Drop("fastapi", architex.Position{X: 350, Y: 100})
	db, _ := c.Drop("postgresql", architex.Position{X: 600, Y: 100})

	c.OnConnect(architex.Connection{Source: web.ID, Target: api.ID})
	c.OnConnect(architex.Connection{Source: api.ID, Target: db.ID})

	// Same pair in reverse: ignored.
	if _, ok := c.OnConnect(architex.Connection{Source: db.ID, Target: api.ID}); !ok {
		fmt.Println("reverse connection ignored")
	}

	c.SetProjectName("todo-app")
	c.SetPrompt("A todo app with accounts and sharing")
	fmt.Printf("\ncanvas: %d nodes, %d edges, %d history entries\n",
		len(c.Nodes()), len(c.Edges()), c.HistoryLen())

	// ── Undo / redo ───────────────────────────────────────────────────
	c.Undo()
	fmt.Printf("after undo: %d edges\n", len(c.Edges()))
	c.Redo()
	fmt.Printf("after redo: %d edges\n", len(c.Edges()))

	// ── Persist and restore ───────────────────────────────────────────
	st := c.State()
	st.UpdatedAt = time.Now().UnixMilli()
	if err := store.Save(ctx, architex.DefaultStateKey, &st); err != nil {
		log.Fatalf("save: %v", err)
	}

	loaded, err := store.Load(ctx, architex.DefaultStateKey)
	if err != nil {
		log.Fatalf("load: %v", err)
	}
	restored := canvas.FromState(*loaded)
	fmt.Printf("\nrestored %q: %d nodes, %d edges\n",
		loaded.ProjectName, len(restored.Nodes()), len(restored.Edges()))

	// ── Deleting a node cascades to its edges ─────────────────────────
	restored.DeleteNode(api.ID)
	fmt.Printf("after deleting %s: %d edges\n", api.ID, len(restored.Edges()))

	// ── The job payload ───────────────────────────────────────────────
	fmt.Println("\narchitecture spec:")
	printJSON(c.Spec(time.Now()))

	if err := store.Delete(ctx, architex.DefaultStateKey); err != nil {
		log.Fatalf("delete: %v", err)
	}
	fmt.Println("\ncanvas deleted")
}

func printJSON(v any) {
	out, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(out))
}
