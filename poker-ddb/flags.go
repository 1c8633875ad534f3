package pokerddb

import (
	pokercli "github.com/pokerpoint/pokerpoint-go/poker-cli"
	"github.com/urfave/cli/v2"
)

var DDBOpts struct {
	DAXCluster string
	DAXRegion  string
	Endpoint   string
}

var DAXClusterFlag = pokercli.StringFlag("dax-cluster", "The DAX cluster to connect to", &DDBOpts.DAXCluster)
var DAXRegionFlag = pokercli.StringFlag("dax-region", "The region of the DAX cluster", &DDBOpts.DAXRegion, "eu-west-2")
var EndpointFlag = pokercli.StringFlag("dynamodb-endpoint", "Override the DynamoDB endpoint, e.g. http://localhost:8000 for DynamoDB Local", &DDBOpts.Endpoint)

var DDBFlags = []cli.Flag{
	DAXClusterFlag,
	DAXRegionFlag,
	EndpointFlag,
}
