package discovery

import (
	"fmt"
	"net"
	"strconv"

	consulapi "github.com/hashicorp/consul/api"
	"github.com/rs/zerolog"
)

// Registration describes a service instance announced to Consul.
type Registration struct {
	ServiceName string
	Host        string
	HTTPPort    int
	GRPCPort    int
	Tags        []string
}

// ID returns the unique instance id used for the Consul registration.
func (r Registration) ID() string {
	return fmt.Sprintf("%s-%s-%d", r.ServiceName, r.Host, r.HTTPPort)
}

func (r Registration) agentService() *consulapi.AgentServiceRegistration {
	return &consulapi.AgentServiceRegistration{
		ID:      r.ID(),
		Name:    r.ServiceName,
		Address: r.Host,
		Port:    r.HTTPPort,
		Tags:    r.Tags,
		Check: &consulapi.AgentServiceCheck{
			GRPC:                           net.JoinHostPort(r.Host, strconv.Itoa(r.GRPCPort)),
			Interval:                       "10s",
			Timeout:                        "3s",
			DeregisterCriticalServiceAfter: "1m",
		},
	}
}

// ConsulRegistry registers service instances with a Consul agent.
type ConsulRegistry struct {
	client *consulapi.Client
	logger *zerolog.Logger
}

// NewConsulRegistry creates a registry talking to the agent at addr.
func NewConsulRegistry(addr string, logger *zerolog.Logger) (*ConsulRegistry, error) {
	cfg := consulapi.DefaultConfig()
	cfg.Address = addr

	client, err := consulapi.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create consul client: %w", err)
	}

	return &ConsulRegistry{client: client, logger: logger}, nil
}

// Register announces the instance; Consul probes its gRPC health server.
func (c *ConsulRegistry) Register(reg Registration) error {
	if err := c.client.Agent().ServiceRegister(reg.agentService()); err != nil {
		return fmt.Errorf("failed to register service in consul: %w", err)
	}

	c.logger.Info().Str("service_id", reg.ID()).Msg("registered service in consul")
	return nil
}

// Deregister removes the instance from Consul.
func (c *ConsulRegistry) Deregister(reg Registration) error {
	if err := c.client.Agent().ServiceDeregister(reg.ID()); err != nil {
		return fmt.Errorf("failed to deregister service from consul: %w", err)
	}

	c.logger.Info().Str("service_id", reg.ID()).Msg("deregistered service from consul")
	return nil
}
