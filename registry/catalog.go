package registry

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	clientv3 "go.etcd.io/etcd/client/v3"

	"mini-tl/message"
)

const catalogPrefix = "/mini-tl/types/"

// Catalog is the shared view of which nodes decode which identifiers, so a peer can
// check before sending a constructor the node would have to reject or convert.
//
//	Key:   /mini-tl/types/{node}/{id as 8 hex digits}
//	Value: the identifier rendered as "#xxxxxxxx"
//
// Entries are attached to a TTL lease: if the node stops renewing, its types expire.
type Catalog interface {
	Publish(ctx context.Context, node string, reg *Registry, ttl int64) error
	Withdraw(ctx context.Context, node string) error
	Lookup(ctx context.Context, node string) ([]message.TypeID, error)
	Watch(ctx context.Context, node string) <-chan []message.TypeID
}

// EtcdCatalog implements Catalog on etcd v3.
type EtcdCatalog struct {
	client *clientv3.Client // thread-safe, shared across goroutines
}

// NewEtcdCatalog connects to the given endpoints.
func NewEtcdCatalog(endpoints []string, dialTimeout time.Duration) (*EtcdCatalog, error) {
	c, err := clientv3.New(clientv3.Config{
		Endpoints:   endpoints,
		DialTimeout: dialTimeout,
	})
	if err != nil {
		return nil, err
	}
	return &EtcdCatalog{client: c}, nil
}

// Close releases the etcd connection.
func (c *EtcdCatalog) Close() error {
	return c.client.Close()
}

func nodePrefix(node string) string {
	return catalogPrefix + node + "/"
}

func typeKey(node string, id message.TypeID) string {
	return fmt.Sprintf("%s%08x", nodePrefix(node), uint32(id))
}

func parseTypeKey(node, key string) (message.TypeID, error) {
	raw, ok := strings.CutPrefix(key, nodePrefix(node))
	if !ok {
		return 0, fmt.Errorf("registry: key %q outside node %q", key, node)
	}
	v, err := strconv.ParseUint(raw, 16, 32)
	if err != nil {
		return 0, fmt.Errorf("registry: key %q: %w", key, err)
	}
	return message.TypeID(v), nil
}

// Publish writes every current constructor of reg under node, attached to a lease of
// ttl seconds that is kept alive until ctx is cancelled.
//
// Note: the lease id stays local so one EtcdCatalog can publish several nodes.
func (c *EtcdCatalog) Publish(ctx context.Context, node string, reg *Registry, ttl int64) error {
	lease, err := c.client.Grant(ctx, ttl)
	if err != nil {
		return err
	}

	for _, id := range reg.IDs() {
		_, err := c.client.Put(ctx, typeKey(node, id), id.String(), clientv3.WithLease(lease.ID))
		if err != nil {
			return err
		}
	}

	ch, err := c.client.KeepAlive(ctx, lease.ID)
	if err != nil {
		return err
	}
	// drain keepalive responses so the channel never fills
	go func() {
		for range ch {
		}
	}()
	return nil
}

// Withdraw removes every entry of node.
func (c *EtcdCatalog) Withdraw(ctx context.Context, node string) error {
	_, err := c.client.Delete(ctx, nodePrefix(node), clientv3.WithPrefix())
	return err
}

// Lookup returns the identifiers node has published, in ascending order.
func (c *EtcdCatalog) Lookup(ctx context.Context, node string) ([]message.TypeID, error) {
	resp, err := c.client.Get(ctx, nodePrefix(node), clientv3.WithPrefix(), clientv3.WithKeysOnly())
	if err != nil {
		return nil, err
	}
	ids := make([]message.TypeID, 0, len(resp.Kvs))
	for _, kv := range resp.Kvs {
		id, err := parseTypeKey(node, string(kv.Key))
		if err != nil {
			continue // foreign key under our prefix
		}
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids, nil
}

// Watch emits the full identifier list of node whenever it changes.
func (c *EtcdCatalog) Watch(ctx context.Context, node string) <-chan []message.TypeID {
	out := make(chan []message.TypeID, 1)
	go func() {
		defer close(out)
		for range c.client.Watch(ctx, nodePrefix(node), clientv3.WithPrefix()) {
			ids, err := c.Lookup(ctx, node)
			if err != nil {
				continue
			}
			select {
			case out <- ids:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// Missing returns the identifiers reg decodes natively that node has not published.
func Missing(ctx context.Context, cat Catalog, node string, reg *Registry) ([]message.TypeID, error) {
	remote, err := cat.Lookup(ctx, node)
	if err != nil {
		return nil, err
	}
	var missing []message.TypeID
	for _, id := range reg.IDs() {
		if _, found := slices.BinarySearch(remote, id); !found {
			missing = append(missing, id)
		}
	}
	return missing, nil
}
