// Package tor provides an HTTP client routed through a Tor SOCKS5
// proxy, with circuit rotation over the control port.
package tor

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/net/proxy"
)

type TorClient struct {
	proxyURL     string
	controlAddr  string
	dialer       proxy.Dialer
	client       *http.Client
	logger       *zap.Logger
	mutex        sync.RWMutex
	requestCount int
	rotateAfter  int // Rotate IP after N requests
	lastRotation time.Time
}

func NewTorClient(proxyURL, controlAddr string, rotateAfter int, logger *zap.Logger) (*TorClient, error) {
	tc := &TorClient{
		proxyURL:     proxyURL,
		controlAddr:  controlAddr,
		rotateAfter:  rotateAfter,
		logger:       logger,
		lastRotation: time.Now(),
	}

	if err := tc.createNewConnection(); err != nil {
		return nil, err
	}

	return tc, nil
}

func (tc *TorClient) createNewConnection() error {
	dialer, err := proxy.SOCKS5("tcp", tc.proxyURL, nil, proxy.Direct)
	if err != nil {
		return fmt.Errorf("failed to create SOCKS5 dialer: %w", err)
	}

	httpClient := &http.Client{
		Transport: &http.Transport{
			DialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
				if contextDialer, ok := dialer.(proxy.ContextDialer); ok {
					return contextDialer.DialContext(ctx, network, addr)
				}
				return dialer.Dial(network, addr)
			},
			MaxIdleConns:        100,
			IdleConnTimeout:     90 * time.Second,
			TLSHandshakeTimeout: 10 * time.Second,
		},
		Timeout: 30 * time.Second,
	}

	tc.mutex.Lock()
	tc.dialer = dialer
	tc.client = httpClient
	tc.mutex.Unlock()

	return nil
}

// Client returns the proxied HTTP client. Requests made through it do
// not count toward circuit rotation; use Transport for that.
func (tc *TorClient) Client() *http.Client {
	tc.mutex.RLock()
	defer tc.mutex.RUnlock()
	return tc.client
}

// Transport returns a RoundTripper that routes through Tor and rotates
// the circuit every rotateAfter requests.
func (tc *TorClient) Transport() http.RoundTripper {
	return &rotatingTransport{tc: tc}
}

type rotatingTransport struct {
	tc *TorClient
}

func (rt *rotatingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if err := rt.tc.RotateIPIfNeeded(); err != nil {
		rt.tc.logger.Warn("tor rotation failed", zap.Error(err))
	}

	rt.tc.mutex.RLock()
	transport := rt.tc.client.Transport
	rt.tc.mutex.RUnlock()

	resp, err := transport.RoundTrip(req)

	rt.tc.mutex.Lock()
	rt.tc.requestCount++
	rt.tc.mutex.Unlock()

	return resp, err
}

// GetNewTorIP requests a new Tor circuit (new IP)
func (tc *TorClient) GetNewTorIP() error {
	conn, err := net.Dial("tcp", tc.controlAddr)
	if err != nil {
		return fmt.Errorf("failed to connect to Tor control port: %w", err)
	}
	defer conn.Close()

	// Send NEWNYM signal to get new circuit
	_, err = conn.Write([]byte("AUTHENTICATE \"\"\r\n"))
	if err != nil {
		return fmt.Errorf("failed to authenticate: %w", err)
	}

	// Read authentication response
	buffer := make([]byte, 1024)
	_, err = conn.Read(buffer)
	if err != nil {
		return fmt.Errorf("failed to read auth response: %w", err)
	}

	// Send NEWNYM command
	_, err = conn.Write([]byte("SIGNAL NEWNYM\r\n"))
	if err != nil {
		return fmt.Errorf("failed to send NEWNYM: %w", err)
	}

	// Read NEWNYM response
	_, err = conn.Read(buffer)
	if err != nil {
		return fmt.Errorf("failed to read NEWNYM response: %w", err)
	}

	// Send QUIT
	conn.Write([]byte("QUIT\r\n"))

	tc.mutex.Lock()
	tc.lastRotation = time.Now()
	tc.requestCount = 0
	tc.mutex.Unlock()

	tc.logger.Info("tor circuit rotated")
	return nil
}

// RotateIPIfNeeded rotates IP if conditions are met
func (tc *TorClient) RotateIPIfNeeded() error {
	tc.mutex.Lock()
	shouldRotate := tc.rotateAfter > 0 && tc.requestCount >= tc.rotateAfter
	tc.mutex.Unlock()

	if shouldRotate {
		if err := tc.GetNewTorIP(); err != nil {
			return fmt.Errorf("failed to rotate IP: %w", err)
		}

		// Wait a bit for the new circuit to be established
		time.Sleep(2 * time.Second)

		// Recreate the connection with new circuit
		if err := tc.createNewConnection(); err != nil {
			return fmt.Errorf("failed to create new connection: %w", err)
		}
	}

	return nil
}

// Do makes an HTTP request and handles IP rotation
func (tc *TorClient) Do(req *http.Request) (*http.Response, error) {
	// Check if we need to rotate IP before request
	if err := tc.RotateIPIfNeeded(); err != nil {
		tc.logger.Warn("tor rotation failed", zap.Error(err))
	}

	tc.mutex.RLock()
	client := tc.client
	tc.mutex.RUnlock()

	resp, err := client.Do(req)

	tc.mutex.Lock()
	tc.requestCount++
	tc.mutex.Unlock()

	return resp, err
}

// Get is a convenience method for GET requests
func (tc *TorClient) Get(url string) (*http.Response, error) {
	req, err := http.NewRequest("GET", url, nil)
	if err != nil {
		return nil, err
	}
	return tc.Do(req)
}

// GetCurrentIP returns the current external IP (for testing)
func (tc *TorClient) GetCurrentIP() (string, error) {
	resp, err := tc.Get("https://httpbin.org/ip")
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}

	return string(body), nil
}
