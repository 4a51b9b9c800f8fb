package utils

import (
	"fmt"
	"sync"

	"github.com/bwmarrin/snowflake"
)

var (
	node *snowflake.Node
	once sync.Once
)

// InitSnowflake initializes the process-wide ID node. Datacenter and
// worker IDs each use 5 bits (0-31); repeat calls are no-ops.
func InitSnowflake(datacenterID, workerID int64) error {
	var err error
	once.Do(func() {
		nodeID := (datacenterID << 5) | workerID
		node, err = snowflake.NewNode(nodeID)
	})
	return err
}

// GenerateID returns a unique snowflake ID
func GenerateID() (int64, error) {
	if node == nil {
		return 0, fmt.Errorf("snowflake node not initialized")
	}
	return node.Generate().Int64(), nil
}
