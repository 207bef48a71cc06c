package common

import (
	"github.com/bwmarrin/snowflake"
)

var idNode *snowflake.Node

func init() {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	idNode = node
}

// UUIDint64 returns a time ordered unique id.
func UUIDint64() int64 {
	return idNode.Generate().Int64()
}
