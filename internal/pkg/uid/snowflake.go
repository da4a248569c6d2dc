package uid

import (
	"fmt"
	"hash/fnv"
	"os"

	"github.com/bwmarrin/snowflake"
)

// Snowflake generates 63-bit time-ordered IDs.
type Snowflake struct {
	node *snowflake.Node
}

// NewSnowflake builds a generator whose node number is derived from the host name,
// or from SNOWFLAKE_NODE when that variable is a valid node number.
func NewSnowflake() (*Snowflake, error) {
	node, err := snowflake.NewNode(nodeNumber())
	if err != nil {
		return nil, fmt.Errorf("uid: snowflake node: %w", err)
	}

	return &Snowflake{node: node}, nil
}

// Generate returns the next ID.
func (s *Snowflake) Generate() int64 {
	return s.node.Generate().Int64()
}

func nodeNumber() int64 {
	maxNode := int64(1)<<snowflake.NodeBits - 1

	if v := os.Getenv("SNOWFLAKE_NODE"); v != "" {
		var n int64
		if _, err := fmt.Sscan(v, &n); err == nil && n >= 0 && n <= maxNode {
			return n
		}
	}

	host, err := os.Hostname()
	if err != nil || host == "" {
		return 0
	}

	h := fnv.New32a()
	_, _ = h.Write([]byte(host))

	return int64(h.Sum32()) & maxNode
}
