package ipc

import (
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"time"
)

// Client provides RPC access to the daemon.
type Client struct {
	conn   net.Conn
	client *rpc.Client
}

// Dial connects to the IPC server at the given socket path.
func Dial(path string) (*Client, error) {
	conn, err := net.DialTimeout("unix", path, 2*time.Second)
	if err != nil {
		return nil, err
	}
	rpcClient := rpc.NewClientWithCodec(jsonrpc.NewClientCodec(conn))
	return &Client{conn: conn, client: rpcClient}, nil
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	if c.client != nil {
		_ = c.client.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

func call[Resp any](c *Client, method string, req any) (*Resp, error) {
	var resp Resp
	if err := c.client.Call(ServiceName+"."+method, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Start requests the daemon to start its scheduler.
func (c *Client) Start() (*StartResponse, error) {
	return call[StartResponse](c, "Start", StartRequest{})
}

// Stop requests the daemon to stop its scheduler.
func (c *Client) Stop() (*StopResponse, error) {
	return call[StopResponse](c, "Stop", StopRequest{})
}

// Status retrieves the daemon status.
func (c *Client) Status() (*StatusResponse, error) {
	return call[StatusResponse](c, "Status", StatusRequest{})
}

// QueueList returns queue items optionally filtered by statuses.
func (c *Client) QueueList(statuses []string) (*QueueListResponse, error) {
	return call[QueueListResponse](c, "QueueList", QueueListRequest{Statuses: statuses})
}

// QueueDescribe returns details for a single queue item.
func (c *Client) QueueDescribe(id int64) (*QueueDescribeResponse, error) {
	return call[QueueDescribeResponse](c, "QueueDescribe", QueueDescribeRequest{ID: id})
}

// QueueAdd enqueues a media file through the daemon.
func (c *Client) QueueAdd(req QueueAddRequest) (*QueueAddResponse, error) {
	return call[QueueAddResponse](c, "QueueAdd", req)
}

// QueueResetFailed resets failed items. An empty list resets all of them.
func (c *Client) QueueResetFailed(ids []int64) (*QueueResetFailedResponse, error) {
	return call[QueueResetFailedResponse](c, "QueueResetFailed", QueueResetFailedRequest{IDs: ids})
}

// QueueRemove removes specific items.
func (c *Client) QueueRemove(ids []int64) (*QueueRemoveResponse, error) {
	return call[QueueRemoveResponse](c, "QueueRemove", QueueRemoveRequest{IDs: ids})
}

// QueueClear removes items in the given statuses; none clears every
// status except in progress.
func (c *Client) QueueClear(statuses []string) (*QueueClearResponse, error) {
	return call[QueueClearResponse](c, "QueueClear", QueueClearRequest{Statuses: statuses})
}

// QueueClearPosted removes posted items older than the given number of days.
func (c *Client) QueueClearPosted(olderThanDays int) (*QueueClearPostedResponse, error) {
	return call[QueueClearPostedResponse](c, "QueueClearPosted", QueueClearPostedRequest{OlderThanDays: olderThanDays})
}

// QueueHealth returns queue diagnostics.
func (c *Client) QueueHealth() (*QueueHealthResponse, error) {
	return call[QueueHealthResponse](c, "QueueHealth", QueueHealthRequest{})
}

// DatabaseHealth retrieves detailed database diagnostics.
func (c *Client) DatabaseHealth() (*DatabaseHealthResponse, error) {
	return call[DatabaseHealthResponse](c, "DatabaseHealth", DatabaseHealthRequest{})
}

// RunNow triggers a manual firing and waits for its report.
func (c *Client) RunNow() (*RunNowResponse, error) {
	return call[RunNowResponse](c, "RunNow", RunNowRequest{})
}

// Schedule lists the configured posting times.
func (c *Client) Schedule() (*ScheduleResponse, error) {
	return call[ScheduleResponse](c, "ScheduleList", ScheduleRequest{})
}

// LogTail returns log lines from the daemon run log.
func (c *Client) LogTail(req LogTailRequest) (*LogTailResponse, error) {
	return call[LogTailResponse](c, "LogTail", req)
}

// TestNotification triggers a notification test via the daemon.
func (c *Client) TestNotification() (*TestNotificationResponse, error) {
	return call[TestNotificationResponse](c, "TestNotification", TestNotificationRequest{})
}
