// Package client executes requests through the engine and hands out
// streaming responses or pooled, classified results.
package client

import (
	"context"
	"sync"
	"time"

	pkgerrors "github.com/pkg/errors"

	"github.com/haxii/fastresp/engine"
	"github.com/haxii/fastresp/log"
	"github.com/haxii/fastresp/result"
	"github.com/haxii/fastresp/stream"
)

// Client implements http client.
//
// It is safe calling Client methods from concurrently running go routines.
type Client struct {
	// Engine executing the requests, a default engine if nil
	Engine *engine.Engine

	// Results pools the outcomes of DoResult, a default pool if nil
	Results *result.Pool

	// SinkCapacity bytes of a response body buffered ahead of the reader,
	// stream.DefaultCapacity if not set
	SinkCapacity int

	// Observer of every response stream
	Observer stream.Observer

	Logger log.Logger

	initOnce sync.Once
}

var errNilRequest = pkgerrors.New("nil request")

// New makes a client on e and results, either may be nil
func New(e *engine.Engine, results *result.Pool) *Client {
	c := &Client{Engine: e, Results: results}
	c.init()
	return c
}

func (c *Client) init() {
	c.initOnce.Do(func() {
		if c.Logger == nil {
			c.Logger = log.Named("client")
		}
		if c.Engine == nil {
			c.Engine = &engine.Engine{Logger: c.Logger}
		}
		if c.Results == nil {
			c.Results = result.NewPool(result.DefaultCapacity, result.Options{Logger: c.Logger})
		}
	})
}

// Do sends req and returns once the response head arrived. The body
// streams from the connection while it is read.
//
// Cancelling ctx cancels the whole exchange, body included. The caller
// must call Cleanup on the response.
func (c *Client) Do(ctx context.Context, req *Request) (*Response, error) {
	c.init()
	if req == nil {
		return nil, errNilRequest
	}
	ereq := req.engineRequest()
	exchangeCtx, cancel := context.WithCancelCause(ctx)
	consumer := stream.NewConsumer(exchangeCtx, ereq.Info(), stream.Options{
		Capacity: c.SinkCapacity,
		Logger:   c.Logger,
		Observer: c.Observer,
	})
	done := make(chan error, 1)
	resp := &Response{
		requestTime: time.Now(),
		consumer:    consumer,
		body:        consumer.Body(),
		cancel:      cancel,
		done:        done,
	}
	go func() {
		done <- c.Engine.Execute(exchangeCtx, ereq, consumer)
	}()

	// the consumer ends itself once ctx is done, so its own outcome
	// carries the cause of a deadline or cancellation
	head, err := consumer.AwaitHeaders(context.Background())
	if err != nil {
		resp.Cleanup()
		if exchangeErr := consumer.Err(); exchangeErr != nil {
			err = exchangeErr
		}
		return nil, err
	}
	resp.head = head
	resp.responseTime = time.Now()
	return resp, nil
}

// Decoder turns a successful response into the payload of its result
type Decoder func(resp *Response) (interface{}, error)

// DoResult sends req and classifies the response into a pooled result.
// decode runs only for kinds that carry a payload (200, 201 and 203) and
// may read the body.
//
// The caller consumes the result, which cleans up the response.
func (c *Client) DoResult(ctx context.Context, req *Request, decode Decoder) (*result.Result, error) {
	resp, err := c.Do(ctx, req)
	if err != nil {
		return nil, err
	}
	kind := result.Classify(resp.StatusCode())
	var payload interface{}
	if decode != nil && kind.CarriesPayload() {
		if payload, err = decode(resp); err != nil {
			resp.Cleanup()
			return nil, err
		}
	}
	return c.Results.Acquire(kind, resp, payload), nil
}

// BytesDecoder reads the whole body as the payload
func BytesDecoder(resp *Response) (interface{}, error) {
	return resp.Bytes()
}
