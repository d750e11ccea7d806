package main

import (
	"context"
	"encoding/binary"
	"io"
	"log"
	"net"
	"sync"
	"time"

	"github.com/sandpiper-dns/adns/config"
	"github.com/sandpiper-dns/adns/rrtype"
	"github.com/sandpiper-dns/adns/server"
	"github.com/sandpiper-dns/adns/wire"
)

// runDNSEngine starts one UDP listener and one TCP listener per configured
// address, each dispatching through the shared Processor via a fresh
// Transaction per request. Grounded on the teacher's tdns/do53.go DnsEngine
// (goroutine-per-listener, context-cancellation shutdown), rebuilt over
// net.UDPConn/net.TCPListener rather than miekg/dns's dns.Server since this
// repository owns its wire codec end to end.
func runDNSEngine(ctx context.Context, cfg config.DnsEngineConf, proc *server.Processor) {
	var wg sync.WaitGroup
	for _, addr := range cfg.Addresses {
		addr := addr
		wg.Add(2)
		go func() {
			defer wg.Done()
			serveUDP(ctx, addr, proc)
		}()
		go func() {
			defer wg.Done()
			serveTCP(ctx, addr, proc)
		}()
	}
	wg.Wait()
}

func serveUDP(ctx context.Context, addr string, proc *server.Processor) {
	udpAddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		log.Printf("authd: udp %s: %v", addr, err)
		return
	}
	conn, err := net.ListenUDP("udp", udpAddr)
	if err != nil {
		log.Printf("authd: udp %s: %v", addr, err)
		return
	}
	defer conn.Close()
	log.Printf("authd: listening on %s (udp)", addr)

	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	buf := make([]byte, 65535)
	for {
		n, src, err := conn.ReadFromUDP(buf)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			continue
		}
		req := append([]byte(nil), buf[:n]...)
		go handleUDP(proc, conn, src, req)
	}
}

// handleUDP answers a single datagram. AXFR/IXFR must stream over TCP
// (RFC 5936 §4.2); a UDP request for either gets the classic truncated
// response that tells the resolver to retry over TCP, instead of being
// handed to a Transaction that would otherwise try to stream a whole zone
// through one unfragmented datagram.
func handleUDP(proc *server.Processor, conn *net.UDPConn, src *net.UDPAddr, req []byte) {
	if q, header, need := xfrOverUDP(req); need {
		b := wire.NewBuilder(wire.Header{ID: header.ID, QR: true, AA: true, TC: true, Opcode: header.Opcode}, 512, 0)
		b.WriteQuestion(q)
		_, _ = conn.WriteToUDP(b.Finish(), src)
		return
	}

	tr := server.NewTransaction(proc, src, true)
	tr.Begin()
	if _, err := tr.Consume(req); err != nil {
		return
	}
	resp, _, err := tr.Produce(proc.ServerMaxUDPPayload)
	tr.Finish()
	if err != nil || resp == nil {
		return
	}
	_, _ = conn.WriteToUDP(resp, src)
}

func xfrOverUDP(req []byte) (*wire.Question, wire.Header, bool) {
	h, err := wire.DecodeHeader(req)
	if err != nil {
		return nil, wire.Header{}, false
	}
	m, err := wire.ParseMessage(req)
	if err != nil || m.Question == nil {
		return nil, h, false
	}
	switch m.Question.QType {
	case rrtype.TypeAXFR, rrtype.TypeIXFR:
		return m.Question, h, true
	default:
		return nil, h, false
	}
}

func serveTCP(ctx context.Context, addr string, proc *server.Processor) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		log.Printf("authd: tcp %s: %v", addr, err)
		return
	}
	defer ln.Close()
	log.Printf("authd: listening on %s (tcp)", addr)

	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			continue
		}
		go handleTCPConn(ctx, proc, conn)
	}
}

// handleTCPConn runs one transaction per length-prefixed message on a
// persistent TCP connection, spec.md §4.4's "persistent TCP connections
// run one transaction after another."
func handleTCPConn(ctx context.Context, proc *server.Processor, conn net.Conn) {
	defer conn.Close()
	src := conn.RemoteAddr()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		_ = conn.SetReadDeadline(time.Now().Add(120 * time.Second))
		var lenBuf [2]byte
		if _, err := io.ReadFull(conn, lenBuf[:]); err != nil {
			return
		}
		msgLen := int(binary.BigEndian.Uint16(lenBuf[:]))
		req := make([]byte, msgLen)
		if _, err := io.ReadFull(conn, req); err != nil {
			return
		}

		tr := server.NewTransaction(proc, src, false)
		tr.Begin()
		if _, err := tr.Consume(req); err != nil {
			return
		}
		for {
			resp, result, err := tr.Produce(65535)
			if err != nil {
				return
			}
			if err := writeTCPFramed(conn, resp); err != nil {
				return
			}
			if result != server.ProduceFull {
				break
			}
		}
		tr.Finish()
	}
}

func writeTCPFramed(conn net.Conn, resp []byte) error {
	var lenBuf [2]byte
	binary.BigEndian.PutUint16(lenBuf[:], uint16(len(resp)))
	if _, err := conn.Write(lenBuf[:]); err != nil {
		return err
	}
	_, err := conn.Write(resp)
	return err
}
