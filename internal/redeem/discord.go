package redeem

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gabegon8910/server-donation-tool/internal/config"
)

const discordApiURL = "https://discord.com/api/v10"

// DiscordRoleClient assigns guild roles through the Discord REST API.
// Implements DiscordClient.
type DiscordRoleClient struct {
	httpClient *http.Client
	baseApiURL string
	botToken   string
	guildID    string
}

func NewDiscordRoleClient(cfg *config.Discord) *DiscordRoleClient {
	return &DiscordRoleClient{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		baseApiURL: discordApiURL,
		botToken:   cfg.BotToken,
		guildID:    cfg.GuildID,
	}
}

// AddRole is a PUT, so re-adding an already-held role succeeds with 204.
func (c *DiscordRoleClient) AddRole(ctx context.Context, discordID, roleID string) error {
	url := fmt.Sprintf("%s/guilds/%s/members/%s/roles/%s",
		c.baseApiURL, c.guildID, discordID, roleID)

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, nil)
	if err != nil {
		return fmt.Errorf("http new request: %w", err)
	}
	req.Header.Set("Authorization", "Bot "+c.botToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("http client do: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("discord error %d: %s", resp.StatusCode, string(b))
	}
	return nil
}
