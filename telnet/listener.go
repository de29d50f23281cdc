/*
 * PCISIM - Remote console server.
 *
 * Copyright 2024, Richard Cornwell
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in
 * all copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 */

package telnet

import (
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"
	"time"

	command "github.com/rcornwell/pcisim/command/command"
	"github.com/rcornwell/pcisim/command/parser"
)

const prompt = "PCISIM> "

// Create a console session writing to out.
type SessionFunc func(out io.Writer) (*command.Session, error)

type Server struct {
	wg         sync.WaitGroup
	listener   net.Listener
	shutdown   chan struct{}
	connection chan net.Conn
	open       SessionFunc
	log        *slog.Logger
	mu         sync.Mutex
	clients    map[net.Conn]struct{}
}

// Open new listener.
func NewServer(address string, open SessionFunc, log *slog.Logger) (*Server, error) {
	listener, err := net.Listen("tcp", address)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on address %s: %w", address, err)
	}
	if log == nil {
		log = slog.Default()
	}

	return &Server{
		listener:   listener,
		shutdown:   make(chan struct{}),
		connection: make(chan net.Conn),
		open:       open,
		log:        log,
		clients:    make(map[net.Conn]struct{}),
	}, nil
}

// Address server is listening on.
func (s *Server) Addr() net.Addr {
	return s.listener.Addr()
}

// Accept a connection.
func (s *Server) acceptConnections() {
	defer s.wg.Done()

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.shutdown:
				return
			default:
				continue
			}
		}
		select {
		case s.connection <- conn:
		case <-s.shutdown:
			conn.Close()
			return
		}
	}
}

// Start processing for a new connection.
func (s *Server) handleConnections() {
	defer s.wg.Done()

	for {
		select {
		case <-s.shutdown:
			return
		case conn := <-s.connection:
			s.log.Info("Console connection", "remote", conn.RemoteAddr().String())
			s.mu.Lock()
			s.clients[conn] = struct{}{}
			s.mu.Unlock()
			s.wg.Add(1)
			go s.handleClient(conn)
		}
	}
}

// Run console commands from one client until it quits or disconnects.
func (s *Server) handleClient(conn net.Conn) {
	defer s.wg.Done()
	defer func() {
		s.mu.Lock()
		delete(s.clients, conn)
		s.mu.Unlock()
		conn.Close()
	}()

	out := netWriter{w: conn}
	sess, err := s.open(out)
	if err != nil {
		s.log.Error("Unable to open console session", "error", err)
		fmt.Fprintf(out, "Error: %v\n", err)
		return
	}
	defer sess.Close()

	state := newState(conn)
	_, _ = conn.Write(initString)
	fmt.Fprint(out, "PCISIM remote console\n"+prompt)

	buffer := make([]byte, 1024)
	for {
		num, err := conn.Read(buffer)
		if err != nil {
			if err != io.EOF {
				s.log.Debug("Console read failed", "error", err)
			}
			return
		}
		for _, text := range state.receive(buffer[:num]) {
			if parser.Execute(text, sess) {
				s.log.Info("Console disconnected", "remote", conn.RemoteAddr().String())
				return
			}
			fmt.Fprint(out, prompt)
		}
	}
}

// Start accepting clients.
func (s *Server) Start() {
	s.log.Info("Console server started", "address", s.listener.Addr().String())
	s.wg.Add(2)
	go s.acceptConnections()
	go s.handleConnections()
}

// Stop server and drop all clients.
func (s *Server) Stop() {
	close(s.shutdown)
	s.listener.Close()
	s.mu.Lock()
	for conn := range s.clients {
		conn.Close()
	}
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		s.log.Warn("Timed out waiting for connections to finish")
	}
}
