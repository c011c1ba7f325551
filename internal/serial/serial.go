// Package serial issues ticket serials. Serials embed a millisecond
// timestamp, the node number and a per-millisecond sequence, so two
// terminals sharing a store never collide as long as node numbers differ.
package serial

import (
	"fmt"

	"github.com/bwmarrin/snowflake"
)

// Generator issues serials for one node
type Generator struct {
	node *snowflake.Node
}

// New creates a Generator for nodeID (0-1023)
func New(nodeID int64) (*Generator, error) {
	node, err := snowflake.NewNode(nodeID)
	if err != nil {
		return nil, fmt.Errorf("serial node %d: %w", nodeID, err)
	}
	return &Generator{node: node}, nil
}

// Next returns a new serial
func (g *Generator) Next() string {
	return g.node.Generate().String()
}
