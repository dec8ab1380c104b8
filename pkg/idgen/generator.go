package idgen

import (
	"fmt"

	"github.com/bwmarrin/snowflake"
)

// Generator hands out unique 64-bit identifiers.
type Generator interface {
	NextID() int64
}

// SnowflakeGenerator implements Generator using Twitter Snowflake ids, so
// user ids are assigned by the application rather than by the database.
type SnowflakeGenerator struct {
	node *snowflake.Node
}

// NewSnowflakeGenerator initializes a new ID generator.
// nodeID must be unique per server instance (0-1023) to prevent collisions.
func NewSnowflakeGenerator(nodeID int64) (*SnowflakeGenerator, error) {
	node, err := snowflake.NewNode(nodeID)
	if err != nil {
		return nil, fmt.Errorf("failed to create snowflake node: %w", err)
	}
	return &SnowflakeGenerator{node: node}, nil
}

// NextID is safe for concurrent use; snowflake.Node locks internally.
func (g *SnowflakeGenerator) NextID() int64 {
	return g.node.Generate().Int64()
}
