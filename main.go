package main

import (
	"flag"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"github.com/ahti123/slack-irc/bridge"
	"github.com/ahti123/slack-irc/chat"
)

func main() {
	config := flag.String("config", "", "Config file to read configuration from")
	debugMode := flag.Bool("debug", false, "Debug mode? (false = use value from settings)")
	notls := flag.Bool("no-tls", false, "Avoid using TLS at all when connecting to the IRC server")
	insecure := flag.Bool("insecure", false, "Skip TLS certificate verification (INSECURE)")

	flag.Parse()

	if *config == "" {
		log.Fatalln("-config argument is required!")
		return
	}

	v := viper.New()
	ext := filepath.Ext(*config)
	configName := strings.TrimSuffix(filepath.Base(*config), ext)
	configType := strings.TrimPrefix(ext, ".")
	configPath := filepath.Dir(*config)
	v.SetConfigName(configName)
	v.SetConfigType(configType)
	v.AddConfigPath(configPath)

	log.WithFields(log.Fields{
		"ConfigName": configName,
		"ConfigType": configType,
		"ConfigPath": configPath,
	}).Infoln("Loading configuration...")

	if err := v.ReadInConfig(); err != nil {
		log.Fatalln(errors.Wrap(err, "could not read config"))
	}

	chatToken := v.GetString("chat_token")
	channelMappings := v.GetStringMapString("channel_mappings")
	ircServer := v.GetString("irc_server")
	ircPassword := v.GetString("irc_pass")
	webIRCPass := v.GetString("webirc_pass")

	if !*debugMode {
		*debugMode = v.GetBool("debug")
	}
	if !*notls {
		*notls = v.GetBool("no_tls")
	}
	if !*insecure {
		*insecure = v.GetBool("insecure")
	}

	v.SetDefault("nickname", "bridge")
	nickname := v.GetString("nickname")

	v.SetDefault("nick_suffix", "-slack")
	nickSuffix := v.GetString("nick_suffix")

	v.SetDefault("command_prefix", "!")
	commandPrefix := v.GetString("command_prefix")

	v.SetDefault("irc_timeout", 120)
	ircTimeout := v.GetInt("irc_timeout")

	avatarURL := parseAvatarURL(v.Get("avatar_url"))
	muteSlackbot := v.GetBool("mute_slackbot")
	ircIgnores := v.GetStringSlice("irc_ignores")
	chatFilteredMessages := v.GetStringSlice("chat_filtered_messages")
	autoSendCommands := v.GetStringSlice("auto_send_commands")

	debugPresence := v.GetBool("debug_presence")

	if webIRCPass == "" {
		log.Warnln("webirc_pass is empty")
	}
	if len(channelMappings) == 0 {
		log.Warnln("channel_mappings are missing!")
	}

	setLogDebug(*debugMode)

	chatClient := chat.NewSlackClient(chatToken)

	cfg := bridge.Config{
		IRCServer:          ircServer,
		IRCNickname:        nickname,
		UseTLS:             !*notls,
		InsecureSkipVerify: *insecure,
		ServerPassword:     ircPassword,
		WebIRCPass:         webIRCPass,
		AutoSendCommands:   autoSendCommands,
		ChannelMapping:     channelMappings,
		ChatToken:          chatToken,
		CommandPrefix:      commandPrefix,
		StatusNotices: bridge.StatusNotices{
			Join:  v.GetBool("irc_status_notices_join"),
			Leave: v.GetBool("irc_status_notices_leave"),
		},
		NickSuffix:           nickSuffix,
		IdleTimeout:          time.Duration(ircTimeout) * time.Second,
		MaxShadowRetries:     5,
		MaxBotRetries:        10,
		FloodProtection:      true,
		MessageDelay:         500 * time.Millisecond,
		AvatarTemplate:       avatarURL,
		MuteSlackbot:         muteSlackbot,
		IRCIgnores:           ircIgnores,
		ChatFilteredMessages: chatFilteredMessages,
		Debug:                *debugMode,
		DebugPresence:        debugPresence,
	}

	b, err := bridge.New(cfg, chatClient, chatClient)
	if err != nil {
		log.WithField("error", err).Fatalln("bridge failed to initialise.")
		return
	}

	sc := make(chan os.Signal, 1)
	signal.Notify(sc, syscall.SIGINT, syscall.SIGTERM, os.Interrupt)

	if err := b.Open(); err != nil {
		log.WithField("error", err).Fatalln("bridge failed to start.")
		return
	}

	log.Infoln("bridge is now running. Press Ctrl-C to exit.")

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		log.Println("Configuration file has changed!")
		if debug := v.GetBool("debug"); *debugMode != debug {
			log.Printf("Debug changed from %+v to %+v", *debugMode, debug)
			*debugMode = debug
			setLogDebug(debug)
		}
	})

	<-sc

	log.Infoln("Shutting down bridge...")
	b.Close()
}

// parseAvatarURL reads the avatar_url config value, which may be either a
// boolean false (avatars disabled) or a string template containing
// $username. Any other type or an explicit false yields "" (disabled).
func parseAvatarURL(v interface{}) string {
	switch val := v.(type) {
	case bool:
		return ""
	case string:
		return val
	default:
		return ""
	}
}

func setLogDebug(debug bool) {
	logger := log.StandardLogger()
	if debug {
		logger.SetLevel(log.DebugLevel)
	} else {
		logger.SetLevel(log.InfoLevel)
	}
}
