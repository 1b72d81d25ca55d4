package main

import (
	"errors"
	"log"
	"runtime"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/logger"
	recoverer "github.com/gofiber/fiber/v3/middleware/recover"

	"github.com/meikuraledutech/pipeline"
)

var startTime = time.Now()

type analyzeRequest struct {
	Nodes []pipeline.Node `json:"nodes"`
	Edges []pipeline.Edge `json:"edges"`
}

// newApp builds the HTTP service. With a nil store only the analysis and
// health routes are mounted.
func newApp(cfg Config, store pipeline.Store, driver string) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:   "pipeline-api",
		BodyLimit: cfg.BodyLimit,
	})

	app.Use(recoverer.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.AllowOrigins,
		AllowMethods: []string{fiber.MethodGet, fiber.MethodPost, fiber.MethodPut, fiber.MethodDelete, fiber.MethodOptions},
		AllowHeaders: []string{fiber.HeaderContentType},
	}))

	app.Get("/", func(c fiber.Ctx) error {
		return c.JSON(fiber.Map{"Ping": "Pong"})
	})

	if driver == "" {
		driver = "none"
	}
	app.Get("/health", func(c fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":     "healthy",
			"service":    "pipeline-api",
			"timestamp":  time.Now().UTC().Format(time.RFC3339),
			"uptime":     time.Since(startTime).String(),
			"store":      driver,
			"go_version": runtime.Version(),
		})
	})

	// ── Analysis ──────────────────────────────────────────────────────
	app.Post("/pipelines/parse", func(c fiber.Ctx) error {
		var req analyzeRequest
		if err := c.Bind().JSON(&req); err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "invalid body"})
		}
		scope, err := pipeline.ParseScope(c.Query("scope"))
		if err != nil {
			return c.Status(400).JSON(fiber.Map{"error": err.Error()})
		}
		res, err := pipeline.AnalyzeScope(req.Nodes, req.Edges, scope)
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(res)
	})

	if store == nil {
		return app
	}

	// ── Pipelines (bulk) ──────────────────────────────────────────────
	app.Post("/pipelines", func(c fiber.Ctx) error {
		var p pipeline.Pipeline
		if err := c.Bind().JSON(&p); err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "invalid body"})
		}
		saved, err := store.SavePipeline(c.Context(), &p)
		if err != nil {
			return fail(c, err)
		}
		return c.Status(201).JSON(saved)
	})

	app.Get("/pipelines", func(c fiber.Ctx) error {
		list, err := store.ListPipelines(c.Context())
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(list)
	})

	app.Get("/pipelines/:id", func(c fiber.Ctx) error {
		p, err := store.GetPipeline(c.Context(), c.Params("id"))
		if err != nil {
			return fail(c, err)
		}
		if p == nil {
			return c.Status(404).JSON(fiber.Map{"error": "pipeline not found"})
		}
		return c.JSON(p)
	})

	app.Delete("/pipelines/:id", func(c fiber.Ctx) error {
		if err := store.DeletePipeline(c.Context(), c.Params("id")); err != nil {
			return fail(c, err)
		}
		return c.SendStatus(204)
	})

	app.Get("/pipelines/:id/analysis", func(c fiber.Ctx) error {
		p, res, err := analyzeStored(c, store)
		if err != nil || p == nil {
			return err
		}
		return c.JSON(res)
	})

	app.Get("/pipelines/:id/dot", func(c fiber.Ctx) error {
		p, res, err := analyzeStored(c, store)
		if err != nil || p == nil {
			return err
		}
		out, err := pipeline.RenderDOT(p, res)
		if err != nil {
			return fail(c, err)
		}
		c.Set(fiber.HeaderContentType, "text/vnd.graphviz; charset=utf-8")
		return c.SendString(out)
	})

	// ── Nodes ─────────────────────────────────────────────────────────
	app.Post("/pipelines/:id/nodes", func(c fiber.Ctx) error {
		var node pipeline.Node
		if err := c.Bind().JSON(&node); err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "invalid body"})
		}
		id, err := store.AddNode(c.Context(), c.Params("id"), &node)
		if err != nil {
			return fail(c, err)
		}
		return c.Status(201).JSON(fiber.Map{"id": id})
	})

	app.Put("/pipelines/:id/nodes/:nodeID", func(c fiber.Ctx) error {
		var node pipeline.Node
		if err := c.Bind().JSON(&node); err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "invalid body"})
		}
		node.ID = c.Params("nodeID")
		if err := store.UpdateNode(c.Context(), c.Params("id"), &node); err != nil {
			return fail(c, err)
		}
		return c.SendStatus(204)
	})

	app.Delete("/pipelines/:id/nodes/:nodeID", func(c fiber.Ctx) error {
		if err := store.DeleteNode(c.Context(), c.Params("id"), c.Params("nodeID")); err != nil {
			return fail(c, err)
		}
		return c.SendStatus(204)
	})

	// ── Edges ─────────────────────────────────────────────────────────
	app.Post("/pipelines/:id/edges", func(c fiber.Ctx) error {
		var edge pipeline.Edge
		if err := c.Bind().JSON(&edge); err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "invalid body"})
		}
		id, err := store.AddEdge(c.Context(), c.Params("id"), &edge)
		if err != nil {
			return fail(c, err)
		}
		return c.Status(201).JSON(fiber.Map{"id": id})
	})

	app.Delete("/pipelines/:id/edges/:edgeID", func(c fiber.Ctx) error {
		if err := store.DeleteEdge(c.Context(), c.Params("id"), c.Params("edgeID")); err != nil {
			return fail(c, err)
		}
		return c.SendStatus(204)
	})

	return app
}

// analyzeStored loads the pipeline named in the route and analyzes it. When
// it returns a nil pipeline the response has already been written.
func analyzeStored(c fiber.Ctx, store pipeline.Store) (*pipeline.Pipeline, *pipeline.AnalysisResult, error) {
	scope, err := pipeline.ParseScope(c.Query("scope"))
	if err != nil {
		return nil, nil, c.Status(400).JSON(fiber.Map{"error": err.Error()})
	}
	p, err := store.GetPipeline(c.Context(), c.Params("id"))
	if err != nil {
		return nil, nil, fail(c, err)
	}
	if p == nil {
		return nil, nil, c.Status(404).JSON(fiber.Map{"error": "pipeline not found"})
	}
	res, err := pipeline.AnalyzeScope(p.Nodes, p.Edges, scope)
	if err != nil {
		return nil, nil, fail(c, err)
	}
	return p, res, nil
}

// fail maps a domain error to a status code and writes it as {"error": ...}.
func fail(c fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, pipeline.ErrInvalidGraph):
		return c.Status(422).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, pipeline.ErrUnknownScope):
		return c.Status(400).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, pipeline.ErrPipelineNotFound):
		return c.Status(404).JSON(fiber.Map{"error": "pipeline not found"})
	case errors.Is(err, pipeline.ErrNodeNotFound):
		return c.Status(404).JSON(fiber.Map{"error": "node not found"})
	case errors.Is(err, pipeline.ErrEdgeNotFound):
		return c.Status(404).JSON(fiber.Map{"error": "edge not found"})
	}
	log.Printf("%s %s: %v", c.Method(), c.Path(), err)
	return c.Status(500).JSON(fiber.Map{"error": err.Error()})
}
