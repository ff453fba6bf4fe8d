package config

import (
	"testing"
	"time"
)

func TestLoadServerConfigDefaults(t *testing.T) {
	t.Setenv("GEOCODER_TOKEN", "tok")

	cfg, err := LoadServerConfig()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.HTTPAddr != ":8080" {
		t.Fatalf("HTTPAddr = %s", cfg.HTTPAddr)
	}
	if cfg.RedisGeoKey != "providers_geo" || cfg.KafkaTopic != "provider-locations" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.DepositCurrency != "gbp" || cfg.DepositAmount != 2500 {
		t.Fatalf("deposit defaults: %+v", cfg)
	}
	if cfg.RankByDistance {
		t.Fatal("ranking must default off")
	}
}

func TestLoadServerConfigOverrides(t *testing.T) {
	t.Setenv("GEOCODER_TOKEN", "tok")
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("SEARCH_TIMEOUT", "3s")
	t.Setenv("SEARCH_RANK_BY_DISTANCE", "TRUE")
	t.Setenv("KAFKA_BROKERS", " b1:9092 , b2:9092 ,")
	t.Setenv("DEPOSIT_AMOUNT", "5000")

	cfg, err := LoadServerConfig()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.HTTPAddr != ":9090" || cfg.SearchTimeout != 3*time.Second || !cfg.RankByDistance {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
	if len(cfg.KafkaBrokers) != 2 || cfg.KafkaBrokers[1] != "b2:9092" {
		t.Fatalf("brokers = %v", cfg.KafkaBrokers)
	}
	if cfg.DepositAmount != 5000 {
		t.Fatalf("deposit = %d", cfg.DepositAmount)
	}
}

func TestLoadServerConfigErrors(t *testing.T) {
	t.Setenv("GEOCODER_TOKEN", "")
	t.Setenv("HTTP_READ_TIMEOUT", "bogus")
	t.Setenv("DEPOSIT_AMOUNT", "-1")

	if _, err := LoadServerConfig(); err == nil {
		t.Fatal("expected joined validation errors")
	}
}
