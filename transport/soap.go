package transport

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/repobridge/sdk/noderef"
)

// Service paths relative to the repository's API endpoint.
const (
	authenticationService = "/AuthenticationService"
	repositoryService     = "/RepositoryService"
)

// Namespace URIs of the legacy web-service API.
const (
	nsAuthentication = "http://www.alfresco.org/ws/service/authentication/1.0"
	nsRepository     = "http://www.alfresco.org/ws/service/repository/1.0"
	nsSecurity       = "http://docs.oasis-open.org/wss/2004/01/oasis-200401-wss-wssecurity-secext-1.0.xsd"
	nsSOAPEnvelope   = "http://schemas.xmlsoap.org/soap/envelope/"
)

// Options configures a SOAPClient.
type Options struct {
	// Endpoint is the base URL of the repository's web-service API,
	// e.g. "http://repo:8080/alfresco/api".
	Endpoint string

	// HTTPClient overrides the underlying HTTP client.
	HTTPClient *http.Client

	// Timeout is applied to the default HTTP client only. Zero means
	// 30 seconds.
	Timeout time.Duration
}

// SOAPClient implements Transport over SOAP 1.1 / HTTP.
//
// The only mutable state is the held ticket, guarded for concurrent use.
type SOAPClient struct {
	endpoint string
	client   *http.Client

	mu     sync.RWMutex
	ticket string
	user   string
}

// NewSOAPClient creates a SOAP transport for the given endpoint.
func NewSOAPClient(opts Options) (*SOAPClient, error) {
	if opts.Endpoint == "" {
		return nil, fmt.Errorf("%w: endpoint is required", ErrRequestFailed)
	}

	client := opts.HTTPClient
	if client == nil {
		timeout := opts.Timeout
		if timeout == 0 {
			timeout = 30 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}

	return &SOAPClient{endpoint: opts.Endpoint, client: client}, nil
}

// Authenticate starts a session and stores the issued ticket for
// subsequent calls.
func (c *SOAPClient) Authenticate(ctx context.Context, username, password string) (string, error) {
	payload, err := xml.Marshal(startSessionRequest{
		NS:       nsAuthentication,
		Username: username,
		Password: password,
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}

	doc, err := c.call(ctx, authenticationService, payload, false)
	if err != nil {
		return "", err
	}

	payloadAny, err := unwrap(doc)
	if err != nil {
		return "", err
	}
	ticket := findTicket(payloadAny)
	if ticket == "" {
		return "", ErrNoTicket
	}

	c.mu.Lock()
	c.ticket = ticket
	c.user = username
	c.mu.Unlock()

	return ticket, nil
}

// UseTicket attaches a previously issued ticket to subsequent calls.
func (c *SOAPClient) UseTicket(ticket string) {
	c.mu.Lock()
	c.ticket = ticket
	c.mu.Unlock()
}

// LookupNode fetches a single node by reference.
func (c *SOAPClient) LookupNode(ctx context.Context, ref noderef.Ref) (any, error) {
	payload, err := xml.Marshal(getRequest{
		NS: nsRepository,
		Where: predicate{
			Nodes: []nodePredicate{{
				Store: storeElement{Scheme: ref.Scheme, Address: ref.Address},
				UUID:  ref.ID,
			}},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	return c.repositoryCall(ctx, payload)
}

// ListChildren lists the immediate children of a node in one round trip.
func (c *SOAPClient) ListChildren(ctx context.Context, ref noderef.Ref) (any, error) {
	payload, err := xml.Marshal(queryChildrenRequest{
		NS: nsRepository,
		Node: nodePredicate{
			Store: storeElement{Scheme: ref.Scheme, Address: ref.Address},
			UUID:  ref.ID,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	return c.repositoryCall(ctx, payload)
}

// QueryPath runs a path-based query against the given store.
func (c *SOAPClient) QueryPath(ctx context.Context, scheme, address, path string) (any, error) {
	payload, err := xml.Marshal(queryRequest{
		NS:    nsRepository,
		Store: storeElement{Scheme: scheme, Address: address},
		Query: queryElement{Language: "xpath", Statement: path},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	return c.repositoryCall(ctx, payload)
}

// Close releases idle connections held by the HTTP client.
func (c *SOAPClient) Close() error {
	c.client.CloseIdleConnections()
	return nil
}

func (c *SOAPClient) repositoryCall(ctx context.Context, payload []byte) (any, error) {
	doc, err := c.call(ctx, repositoryService, payload, true)
	if err != nil {
		return nil, err
	}
	return unwrap(doc)
}

// call posts one SOAP envelope and decodes the response document.
func (c *SOAPClient) call(ctx context.Context, service string, payload []byte, withTicket bool) (map[string]any, error) {
	env := requestEnvelope{
		NS:   nsSOAPEnvelope,
		Body: requestBody{Payload: string(payload)},
	}
	if withTicket {
		c.mu.RLock()
		ticket, user := c.ticket, c.user
		c.mu.RUnlock()
		if ticket != "" {
			env.Header = &requestHeader{Security: newSecurityHeader(user, ticket)}
		}
	}

	data, err := xml.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	data = append([]byte(xml.Header), data...)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+service, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	req.Header.Set("Content-Type", "text/xml; charset=utf-8")
	req.Header.Set("SOAPAction", "")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}

	// Faults arrive with a 500 status; let the decoded fault speak for
	// itself instead of the status code.
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusInternalServerError {
		return nil, fmt.Errorf("%w: %s returned HTTP %d", ErrRequestFailed, service, resp.StatusCode)
	}

	return decodeBody(body)
}

// findTicket digs the ticket string out of an authentication response.
func findTicket(v any) string {
	switch t := v.(type) {
	case map[string]any:
		if s, ok := t["ticket"].(string); ok {
			return s
		}
		for _, child := range t {
			if s := findTicket(child); s != "" {
				return s
			}
		}
	case []any:
		for _, e := range t {
			if s := findTicket(e); s != "" {
				return s
			}
		}
	}
	return ""
}

// Request envelope layout. Payloads are marshaled separately and embedded
// verbatim so each operation only declares its own body element.

type requestEnvelope struct {
	XMLName xml.Name       `xml:"soapenv:Envelope"`
	NS      string         `xml:"xmlns:soapenv,attr"`
	Header  *requestHeader `xml:",omitempty"`
	Body    requestBody
}

type requestHeader struct {
	XMLName  xml.Name `xml:"soapenv:Header"`
	Security securityHeader
}

type requestBody struct {
	XMLName xml.Name `xml:"soapenv:Body"`
	Payload string   `xml:",innerxml"`
}

type securityHeader struct {
	XMLName xml.Name      `xml:"wsse:Security"`
	NS      string        `xml:"xmlns:wsse,attr"`
	Token   usernameToken `xml:"wsse:UsernameToken"`
}

type usernameToken struct {
	Username string `xml:"wsse:Username"`
	Password string `xml:"wsse:Password"`
}

func newSecurityHeader(user, ticket string) securityHeader {
	return securityHeader{
		NS:    nsSecurity,
		Token: usernameToken{Username: user, Password: ticket},
	}
}

type startSessionRequest struct {
	XMLName  xml.Name `xml:"startSession"`
	NS       string   `xml:"xmlns,attr"`
	Username string   `xml:"username"`
	Password string   `xml:"password"`
}

type storeElement struct {
	Scheme  string `xml:"scheme,attr"`
	Address string `xml:"address,attr"`
}

type nodePredicate struct {
	Store storeElement `xml:"store"`
	UUID  string       `xml:"uuid"`
}

type predicate struct {
	Nodes []nodePredicate `xml:"nodes"`
}

type getRequest struct {
	XMLName xml.Name  `xml:"get"`
	NS      string    `xml:"xmlns,attr"`
	Where   predicate `xml:"where"`
}

type queryChildrenRequest struct {
	XMLName xml.Name      `xml:"queryChildren"`
	NS      string        `xml:"xmlns,attr"`
	Node    nodePredicate `xml:"node"`
}

type queryElement struct {
	Language  string `xml:"language,attr"`
	Statement string `xml:"statement"`
}

type queryRequest struct {
	XMLName xml.Name     `xml:"query"`
	NS      string       `xml:"xmlns,attr"`
	Store   storeElement `xml:"store"`
	Query   queryElement `xml:"query"`
}
