package consul

import (
	"fmt"
	"os"
	"strconv"

	consulapi "github.com/hashicorp/consul/api"
)

// NewClient connects to the consul agent at CONSUL_HTTP_ADDR (or the
// library default).
func NewClient() (*consulapi.Client, error) {
	config := consulapi.DefaultConfig()
	client, err := consulapi.NewClient(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create consul client: %w", err)
	}
	return client, nil
}

// RegisterService registers this instance with an HTTP health check on
// /ping so the gateway can discover it.
func RegisterService(client *consulapi.Client, serviceName, address string, port int) error {
	registration := &consulapi.AgentServiceRegistration{
		ID:      fmt.Sprintf("%s-%s-%d", serviceName, address, port),
		Name:    serviceName,
		Address: address,
		Port:    port,
		Check: &consulapi.AgentServiceCheck{
			HTTP:                           fmt.Sprintf("http://%s:%d/ping", address, port),
			Interval:                       "10s",
			Timeout:                        "2s",
			DeregisterCriticalServiceAfter: "1m",
		},
	}
	if err := client.Agent().ServiceRegister(registration); err != nil {
		return fmt.Errorf("failed to register service %s: %w", serviceName, err)
	}
	return nil
}

// ServicePort reads the port this instance should announce.
func ServicePort() (int, error) {
	port := os.Getenv("SERVICE_PORT")
	if port == "" {
		return 0, fmt.Errorf("SERVICE_PORT is not set")
	}
	p, err := strconv.Atoi(port)
	if err != nil {
		return 0, fmt.Errorf("invalid SERVICE_PORT %q: %w", port, err)
	}
	return p, nil
}
