package edge

import (
	"io"
	"log"
	"net"
	"time"

	"github.com/google/uuid"
)

// maxRequestBytes is the fixed read ceiling described in SPEC_FULL.md
// section 4.4: a request (request-line, headers, and body combined) larger
// than this is rejected as malformed.
const maxRequestBytes = 16 * 1024

// Runtime is the fully assembled, ready-to-serve edge runtime: an engine
// holding every worker's module-exports slot, plus the RouteIndex used to
// pick which worker handles a given path.
type Runtime struct {
	engine  *Engine
	workers []Worker
	routes  *RouteIndex
	port    uint16
}

// NewRuntime builds an Engine from cfg, loads every worker in edgeCfg, and
// returns a Runtime ready to serve.
func NewRuntime(edgeCfg *EdgeConfig, cfg EngineConfig) (*Runtime, error) {
	engine, err := NewEngine(cfg)
	if err != nil {
		return nil, err
	}

	workers, routes, err := engine.LoadWorkers(edgeCfg.Workers)
	if err != nil {
		engine.Shutdown()
		return nil, err
	}

	return &Runtime{
		engine:  engine,
		workers: workers,
		routes:  routes,
		port:    edgeCfg.Port,
	}, nil
}

// Shutdown releases the underlying engine context.
func (rt *Runtime) Shutdown() {
	rt.engine.Shutdown()
}

// ListenAndServe binds a TCP listener on the configured port and serves
// connections one at a time, per SPEC_FULL.md section 5 (single-threaded,
// serial dispatch). An accept error is logged and the loop continues; a
// per-connection failure never takes the listener down.
func (rt *Runtime) ListenAndServe() error {
	addr := &net.TCPAddr{Port: int(rt.port)}
	ln, err := net.ListenTCP("tcp", addr)
	if err != nil {
		return err
	}
	defer ln.Close()

	log.Printf("edge: listening on :%d", rt.port)

	for {
		conn, err := ln.Accept()
		if err != nil {
			log.Printf("edge: accept error: %v", err)
			continue
		}
		rt.handleConnection(conn)
	}
}

// handleConnection implements the per-connection protocol in section 4.4:
// one fixed-size read, parse, route-match, dispatch, one response, close.
func (rt *Runtime) handleConnection(conn net.Conn) {
	start := time.Now()
	corrID := uuid.New().String()
	defer conn.Close()

	write := func(b []byte) {
		if _, err := conn.Write(b); err != nil {
			log.Printf("edge[%s]: write error: %v", corrID, err)
		}
	}

	buf := make([]byte, maxRequestBytes)
	n, err := conn.Read(buf)
	if err != nil || n == 0 {
		if err != nil && err != io.EOF {
			log.Printf("edge[%s]: read error: %v", corrID, err)
		}
		return
	}

	req, err := ParseRequest(buf[:n])
	if err != nil {
		write(badRequestResponse())
		log.Printf("edge[%s]: - - 400 %s", corrID, time.Since(start))
		return
	}

	workerIdx := rt.routes.Match(req.Path)
	if workerIdx < 0 {
		write(notFoundResponse())
		log.Printf("edge[%s]: %s %s 404 %s", corrID, req.Method, req.Path, time.Since(start))
		return
	}
	worker := rt.workers[workerIdx]

	workerReq := &WorkerRequest{
		Method:  req.Method,
		URL:     req.RawURL,
		Headers: req.Headers,
		Body:    req.Body,
	}

	result := rt.engine.Execute(worker.Ref, workerReq)
	if result.Error != nil {
		write(internalErrorResponse())
		log.Printf("edge[%s]: %s %s 500 %s (%v)", corrID, req.Method, req.Path, time.Since(start), result.Error)
		return
	}

	resp := result.Response
	body := resp.Body
	if max := rt.engine.MaxResponseBytes(); max > 0 && len(body) > max {
		body = body[:max]
	}
	contentType := resp.ContentType
	if contentType == "" {
		contentType = "text/plain"
	}
	status := resp.StatusCode
	if status == 0 {
		status = 200
	}

	write(serializeResponse(status, contentType, body))
	log.Printf("edge[%s]: %s %s %d %s", corrID, req.Method, req.Path, status, time.Since(start))
}
