package utilities

import (
	"os"
	"strconv"

	"github.com/bwmarrin/snowflake"
	"github.com/segmentio/ksuid"
)

// NewKSUID generates a new globally unique KSUID string.
func NewKSUID() string {
	return ksuid.New().String()
}

// IDGenerator hands out snowflake IDs from a single node so that IDs
// generated within the same millisecond still get distinct sequence numbers.
// A nil node (bad node ID) falls back to KSUIDs.
type IDGenerator struct {
	node *snowflake.Node
}

// NewIDGenerator creates a generator for the given snowflake node ID.
func NewIDGenerator(nodeID int64) *IDGenerator {
	node, err := snowflake.NewNode(nodeID)
	if err != nil {
		return &IDGenerator{}
	}
	return &IDGenerator{node: node}
}

// NewIDGeneratorFromEnv reads the node ID from SNOWFLAKE_NODE, defaulting to 1.
func NewIDGeneratorFromEnv() *IDGenerator {
	nodeEnv := os.Getenv("SNOWFLAKE_NODE")
	if nodeEnv == "" {
		return NewIDGenerator(1)
	}
	nodeID, err := strconv.ParseInt(nodeEnv, 10, 64)
	if err != nil {
		return NewIDGenerator(1)
	}
	return NewIDGenerator(nodeID)
}

// Next returns a new unique ID string.
func (g *IDGenerator) Next() string {
	if g == nil || g.node == nil {
		return NewKSUID()
	}
	return g.node.Generate().String()
}
