/*
 Licensed under the Apache License, Version 2.0 (the "License");
 you may not use this file except in compliance with the License.
 You may obtain a copy of the License at

     https://www.apache.org/licenses/LICENSE-2.0

 Unless required by applicable law or agreed to in writing, software
 distributed under the License is distributed on an "AS IS" BASIS,
 WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 See the License for the specific language governing permissions and
 limitations under the License.
*/

// Package link carries register accesses and exception records over UDP
// between the host tools and a board debug agent.
package link

import (
	"fmt"

	"jinr.ru/greenlab/go-spl/pkg/layers"
)

// ErrLinkTimeout returned when no response arrived after all retries
type ErrLinkTimeout struct {
	Peer string
	Seq  uint16
}

func (e ErrLinkTimeout) Error() string {
	return fmt.Sprintf("No response from %s for request %d", e.Peer, e.Seq)
}

// ErrRemote returned when the agent could not perform an operation
type ErrRemote struct {
	Op *layers.RegOp
}

func (e ErrRemote) Error() string {
	return fmt.Sprintf("Remote operation failed: %s", e.Op)
}

// ErrUnexpected returned when a response does not match its request
type ErrUnexpected struct {
	What string
}

func (e ErrUnexpected) Error() string {
	return fmt.Sprintf("Unexpected response: %s", e.What)
}
