package seawolf

/*------------------------------------------------------------------
 *
 * Purpose:   	Serve position fixes to other software on the vehicle.
 *
 * Description:	The whole point of solving for a position is that some
 *		other box wants it - the ROV's control computer, a
 *		mission logger, a chart display topside.  Rather than
 *		invent a protocol, every new fix goes out as one text
 *		line to every connected TCP client:
 *
 *			lat,lon,z\n
 *
 *		decimal degrees and negative meters.  Connect, read
 *		lines, done.
 *
 *		The service is announced over DNS-SD so clients on the
 *		tether network can find it without anyone typing in an
 *		IP address on a boat.
 *
 *---------------------------------------------------------------*/

import (
	"context"
	"fmt"
	"net"
	"sync"

	"github.com/brutella/dnssd"
	"github.com/charmbracelet/log"
)

const DNS_SD_SERVICE = "_seawolf-fix._tcp"

type fix_server struct {
	listener net.Listener
	log      *log.Logger

	mu      sync.Mutex
	clients map[net.Conn]bool
}

/*------------------------------------------------------------------
 *
 * Name:        fix_server_start
 *
 * Purpose:     Listen for fix clients and announce the service.
 *
 * Inputs:      port	- TCP port from the config file.
 *
 * Returns:     The running server, or an error if the port couldn't
 *		be claimed.  A failed DNS-SD announcement is only
 *		logged; the plain TCP service still works.
 *
 *----------------------------------------------------------------*/

func fix_server_start(port int, logger *log.Logger) (*fix_server, error) {

	var listener, err = net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return nil, err
	}

	var fs = &fix_server{
		listener: listener,
		log:      logger,
		clients:  map[net.Conn]bool{},
	}

	go fs.accept_loop()
	go dns_sd_announce(port, logger)

	logger.Info("fix server listening", "port", port)

	return fs, nil
}

func (fs *fix_server) accept_loop() {

	for {
		var conn, err = fs.listener.Accept()
		if err != nil {
			return
		}

		fs.log.Info("fix client connected", "remote", conn.RemoteAddr().String())

		fs.mu.Lock()
		fs.clients[conn] = true
		fs.mu.Unlock()
	}
}

/*
 * Send one fix to everybody.  A client that won't take the write is
 * gone; drop it and move on.
 */

func (fs *fix_server) publish(lat float64, lon float64, z float64) {

	var line = fmt.Sprintf("%.6f,%.6f,%.2f\n", lat, lon, z)

	fs.mu.Lock()
	defer fs.mu.Unlock()

	for conn := range fs.clients {
		if _, err := conn.Write([]byte(line)); err != nil {
			fs.log.Info("fix client dropped", "remote", conn.RemoteAddr().String())
			conn.Close()
			delete(fs.clients, conn)
		}
	}
}

func (fs *fix_server) close() {

	fs.listener.Close()

	fs.mu.Lock()
	defer fs.mu.Unlock()

	for conn := range fs.clients {
		conn.Close()
		delete(fs.clients, conn)
	}
}

/* Announce the fix service so clients don't need our address. */

func dns_sd_announce(port int, logger *log.Logger) {

	var cfg = dnssd.Config{ //nolint:exhaustruct
		Name: "seawolf",
		Type: DNS_SD_SERVICE,
		Port: port,
	}

	var sv, svErr = dnssd.NewService(cfg)
	if svErr != nil {
		logger.Error("DNS-SD: creating service", "error", svErr)
		return
	}

	var rp, rpErr = dnssd.NewResponder()
	if rpErr != nil {
		logger.Error("DNS-SD: creating responder", "error", rpErr)
		return
	}

	if _, err := rp.Add(sv); err != nil {
		logger.Error("DNS-SD: adding service", "error", err)
		return
	}

	if err := rp.Respond(context.Background()); err != nil {
		logger.Error("DNS-SD: responder stopped", "error", err)
	}
}
