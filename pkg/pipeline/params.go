package pipeline

import (
	"fmt"
	"net"
	"strconv"

	"github.com/platinummonkey/dockgen/pkg/config"
	"github.com/platinummonkey/dockgen/pkg/migrate"
)

// ConnectionParameters is how both drivers reach the database of one run
type ConnectionParameters struct {
	Scheme      string
	Host        string
	Port        int
	Database    string
	User        string
	Password    string
	QueryParams string
}

// URL renders <scheme>://<host>:<port>/<database><query> without credentials
func (p ConnectionParameters) URL() string {
	return fmt.Sprintf("%s://%s/%s%s",
		p.Scheme, net.JoinHostPort(p.Host, strconv.Itoa(p.Port)), p.Database, p.QueryParams)
}

// NewConnectionParameters combines the configuration with the resolved host and published port
func NewConnectionParameters(cfg *config.Config, host string, hostPort int) ConnectionParameters {
	return ConnectionParameters{
		Scheme:      cfg.Connection.Scheme,
		Host:        host,
		Port:        hostPort,
		Database:    cfg.Database.Name,
		User:        cfg.Database.Username,
		Password:    cfg.Database.Password,
		QueryParams: cfg.Connection.QueryParams,
	}
}

// HistoryTable locates the migration history table
type HistoryTable struct {
	Schema string
	Table  string
}

func (h HistoryTable) String() string {
	return h.Schema + "." + h.Table
}

// ResolveHistoryTable applies the defaultSchema and table migration properties
func ResolveHistoryTable(properties map[string]string, schemas []string) HistoryTable {
	return HistoryTable{
		Schema: migrate.DefaultSchemaOf(properties, schemas),
		Table:  migrate.TableOf(properties),
	}
}
