/*
 * MIT License
 *
 * Copyright (c) 2025 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
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

// Package message defines the tagged-union command type exchanged between
// roles over their command queues. A Kind selects which payload field is
// meaningful; consumers switch on Kind rather than inspecting the payload
// directly, so a queue can be handed any Message without panicking on an
// unexpected shape.
package message

// Kind identifies which payload a Message carries. A consumer that does not
// understand a Kind ignores the message rather than erroring.
type Kind uint8

const (
	// KindProcessData carries a role-specific payload to act on.
	KindProcessData Kind = iota
	// KindStopExecution requests a cooperative, drain-then-exit shutdown.
	KindStopExecution
	// KindForceStopExecution requests an immediate exit, discarding any
	// queued work.
	KindForceStopExecution
	// KindRegisterClient registers a client identity with the Sender.
	KindRegisterClient
	// KindDeregisterClient removes a client identity from the Sender.
	KindDeregisterClient
)

func (k Kind) String() string {
	switch k {
	case KindProcessData:
		return "ProcessData"
	case KindStopExecution:
		return "StopExecution"
	case KindForceStopExecution:
		return "ForceStopExecution"
	case KindRegisterClient:
		return "RegisterClient"
	case KindDeregisterClient:
		return "DeregisterClient"
	default:
		return "Unknown"
	}
}

// Message is the single envelope type passed on every role's command queue.
// Payload is only meaningful when Kind is KindProcessData; ClientID is only
// meaningful for the two client-lifecycle kinds.
type Message struct {
	Kind     Kind
	Payload  interface{}
	ClientID string
}

// ProcessData builds a Message carrying payload for the consumer to act on.
func ProcessData(payload interface{}) Message {
	return Message{Kind: KindProcessData, Payload: payload}
}

// StopExecution builds a cooperative shutdown request.
func StopExecution() Message {
	return Message{Kind: KindStopExecution}
}

// ForceStopExecution builds an immediate shutdown request.
func ForceStopExecution() Message {
	return Message{Kind: KindForceStopExecution}
}

// RegisterClient builds a client-registration request for the Sender.
func RegisterClient(id string) Message {
	return Message{Kind: KindRegisterClient, ClientID: id}
}

// DeregisterClient builds a client-deregistration request for the Sender.
func DeregisterClient(id string) Message {
	return Message{Kind: KindDeregisterClient, ClientID: id}
}

// Queue is the command channel shape shared by every role: buffered enough
// to hold a handful of in-flight commands without blocking the sender role.
type Queue chan Message

// NewQueue allocates a Queue with the given buffer depth.
func NewQueue(depth int) Queue {
	if depth < 1 {
		depth = 1
	}
	return make(Queue, depth)
}
