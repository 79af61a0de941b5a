package spam

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"

	"github.com/tencentcloud/tencentcloud-sdk-go/tencentcloud/common"
	"github.com/tencentcloud/tencentcloud-sdk-go/tencentcloud/common/profile"
	tms "github.com/tencentcloud/tencentcloud-sdk-go/tencentcloud/tms/v20201229"

	"comment-notifier/pkg/comment"
)

const (
	tmsEndpoint      = "tms.tencentcloudapi.com"
	tmsDefaultRegion = "ap-guangzhou"
)

// TencentChecker classifies comments through Tencent Cloud text
// moderation. Anything the service does not wave through as "Pass" is
// treated as spam.
type TencentChecker struct {
	logger   *slog.Logger
	endpoint string // overridable in tests
	scheme   string // overridable in tests, "" means the SDK default
}

// NewTencentChecker creates the cloud content-moderation checker.
func NewTencentChecker(logger *slog.Logger) *TencentChecker {
	return &TencentChecker{logger: logger, endpoint: tmsEndpoint}
}

func (*TencentChecker) name() string { return "tencent-tms" }

func (*TencentChecker) applicable(_ *comment.Comment, cfg comment.Config) bool {
	return cfg.Has("TENCENT_SECRET_ID") && cfg.Has("TENCENT_SECRET_KEY")
}

func (t *TencentChecker) classify(ctx context.Context, c *comment.Comment, cfg comment.Config) (*bool, error) {
	credential := common.NewCredential(cfg.Get("TENCENT_SECRET_ID"), cfg.Get("TENCENT_SECRET_KEY"))

	cpf := profile.NewClientProfile()
	cpf.HttpProfile.Endpoint = t.endpoint
	if t.scheme != "" {
		cpf.HttpProfile.Scheme = t.scheme
	}

	region := cfg.Get("TENCENT_REGION")
	if region == "" {
		region = tmsDefaultRegion
	}

	client, err := tms.NewClient(credential, region, cpf)
	if err != nil {
		return nil, fmt.Errorf("create tms client: %w", err)
	}

	request := tms.NewTextModerationRequest()
	request.Content = common.StringPtr(base64.StdEncoding.EncodeToString([]byte(c.Comment)))
	request.User = &tms.User{Nickname: common.StringPtr(c.Nick)}
	if c.IP != "" {
		request.Device = &tms.Device{IP: common.StringPtr(c.IP)}
	}

	response, err := client.TextModerationWithContext(ctx, request)
	if err != nil {
		return nil, fmt.Errorf("text moderation: %w", err)
	}

	suggestion := ""
	if response.Response != nil && response.Response.Suggestion != nil {
		suggestion = *response.Response.Suggestion
	}

	t.logger.Info("Content moderation verdict", "suggestion", suggestion, "nick", c.Nick)

	spam := suggestion != "Pass"
	return &spam, nil
}
