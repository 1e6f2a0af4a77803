package database

import (
	"context"
	"database/sql"
	"fmt"
)

const createProfilesSQL = `
CREATE TABLE IF NOT EXISTS profiles (
    id            BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
    email         VARCHAR(191) NOT NULL UNIQUE,
    password_hash VARCHAR(255) NOT NULL,
    full_name     VARCHAR(191) NOT NULL DEFAULT '',
    phone         VARCHAR(40)  NOT NULL DEFAULT '',
    role          ENUM('CUSTOMER','STAFF','ADMIN') NOT NULL DEFAULT 'CUSTOMER',
    subscribed    BOOLEAN NOT NULL DEFAULT FALSE,
    created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP
)`

const createRefreshTokensSQL = `
CREATE TABLE IF NOT EXISTS refresh_tokens (
    id         BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
    user_id    BIGINT UNSIGNED NOT NULL,
    token_hash CHAR(64) NOT NULL UNIQUE,
    expires_at DATETIME NOT NULL,
    revoked_at DATETIME NULL,
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    CONSTRAINT fk_refresh_user FOREIGN KEY (user_id) REFERENCES profiles(id) ON DELETE CASCADE
)`

const createServicePackagesSQL = `
CREATE TABLE IF NOT EXISTS service_packages (
    id           BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
    slug         VARCHAR(64)  NOT NULL UNIQUE,
    name         VARCHAR(191) NOT NULL,
    description  TEXT,
    price        DECIMAL(10,2) NOT NULL,
    duration_min INT UNSIGNED NOT NULL,
    category     VARCHAR(40) NOT NULL DEFAULT 'all',
    active       BOOLEAN NOT NULL DEFAULT TRUE,
    created_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP
)`

const createAddOnsSQL = `
CREATE TABLE IF NOT EXISTS add_ons (
    id           BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
    slug         VARCHAR(64)  NOT NULL UNIQUE,
    name         VARCHAR(191) NOT NULL,
    description  TEXT,
    price        DECIMAL(10,2) NOT NULL,
    duration_min INT UNSIGNED NOT NULL,
    category     VARCHAR(40) NOT NULL DEFAULT 'all',
    active       BOOLEAN NOT NULL DEFAULT TRUE,
    created_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP
)`

const createPlansSQL = `
CREATE TABLE IF NOT EXISTS subscription_plans (
    id                   BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
    kind                 ENUM('plan','self_service') NOT NULL,
    name                 VARCHAR(191) NOT NULL,
    description          TEXT,
    price_monthly        DECIMAL(10,2) NOT NULL,
    price_yearly         DECIMAL(10,2) NOT NULL,
    stripe_price_monthly VARCHAR(191) NOT NULL,
    stripe_price_yearly  VARCHAR(191) NOT NULL,
    active               BOOLEAN NOT NULL DEFAULT TRUE
)`

const createVehiclesSQL = `
CREATE TABLE IF NOT EXISTS vehicles (
    id             BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
    user_id        BIGINT UNSIGNED NULL,
    year           SMALLINT UNSIGNED NOT NULL,
    make           VARCHAR(80) NOT NULL,
    model          VARCHAR(80) NOT NULL,
    trim           VARCHAR(80) NOT NULL DEFAULT '',
    body_type      VARCHAR(40) NOT NULL,
    exterior_color VARCHAR(40) NOT NULL DEFAULT '',
    interior_color VARCHAR(40) NOT NULL DEFAULT '',
    license_plate  VARCHAR(20) NOT NULL DEFAULT '',
    created_at     DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
)`

const createBookingsSQL = `
CREATE TABLE IF NOT EXISTS bookings (
    id                  BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
    user_id             BIGINT UNSIGNED NULL,
    vehicle_id          BIGINT UNSIGNED NULL,
    service_package_id  BIGINT UNSIGNED NOT NULL,
    service_name        VARCHAR(191) NOT NULL,
    service_price       DECIMAL(10,2) NOT NULL,
    add_on_ids          JSON NOT NULL,
    appointment_date    DATE NOT NULL,
    appointment_time    CHAR(5) NOT NULL,
    total_price         DECIMAL(10,2) NOT NULL,
    total_duration      INT UNSIGNED NOT NULL,
    status              ENUM('pending','confirmed','completed','cancelled') NOT NULL DEFAULT 'pending',
    customer_name       VARCHAR(191) NOT NULL DEFAULT '',
    customer_email      VARCHAR(191) NOT NULL DEFAULT '',
    customer_phone      VARCHAR(40)  NOT NULL DEFAULT '',
    payment_intent_id   VARCHAR(191) NOT NULL DEFAULT '',
    checkout_session_id VARCHAR(191) NOT NULL,
    created_at          DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at          DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
    UNIQUE KEY ux_bookings_checkout_session (checkout_session_id),
    KEY ix_bookings_slot (appointment_date, appointment_time),
    KEY ix_bookings_user (user_id)
)`

const createSubscriptionsSQL = `
CREATE TABLE IF NOT EXISTS subscriptions (
    id                     BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
    kind                   ENUM('plan','self_service') NOT NULL,
    user_id                BIGINT UNSIGNED NULL,
    plan_id                BIGINT UNSIGNED NOT NULL,
    billing_cycle          ENUM('monthly','yearly') NOT NULL,
    stripe_customer_id     VARCHAR(191) NOT NULL,
    stripe_subscription_id VARCHAR(191) NOT NULL,
    status                 VARCHAR(40) NOT NULL,
    price                  DECIMAL(10,2) NOT NULL DEFAULT 0,
    current_period_start   DATETIME NULL,
    current_period_end     DATETIME NULL,
    cancel_at_period_end   BOOLEAN NOT NULL DEFAULT FALSE,
    created_at             DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at             DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
    UNIQUE KEY ux_subscriptions_customer (kind, stripe_customer_id),
    KEY ix_subscriptions_stripe (stripe_subscription_id)
)`

const createSubscriptionVehiclesSQL = `
CREATE TABLE IF NOT EXISTS subscription_vehicles (
    subscription_id BIGINT UNSIGNED NOT NULL,
    vehicle_id      BIGINT UNSIGNED NOT NULL,
    created_at      DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    PRIMARY KEY (subscription_id, vehicle_id)
)`

const createUsageLogsSQL = `
CREATE TABLE IF NOT EXISTS self_service_usage_logs (
    id                      BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
    subscription_id         BIGINT UNSIGNED NOT NULL,
    user_id                 BIGINT UNSIGNED NULL,
    vehicle_id              BIGINT UNSIGNED NOT NULL,
    check_in_time           DATETIME NOT NULL,
    check_out_time          DATETIME NULL,
    status                  ENUM('in_progress','completed','cancelled') NOT NULL,
    attendant_name          VARCHAR(191) NOT NULL DEFAULT '',
    checkout_attendant_name VARCHAR(191) NOT NULL DEFAULT '',
    notes                   TEXT,
    KEY ix_usage_vehicle_status (vehicle_id, status),
    KEY ix_usage_subscription (subscription_id)
)`

const createReviewsSQL = `
CREATE TABLE IF NOT EXISTS reviews (
    id         BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
    booking_id BIGINT UNSIGNED NOT NULL UNIQUE,
    user_id    BIGINT UNSIGNED NOT NULL,
    rating     TINYINT UNSIGNED NOT NULL,
    comment    TEXT,
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
)`

const createWebhookEventsSQL = `
CREATE TABLE IF NOT EXISTS webhook_events (
    id                BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
    provider          VARCHAR(20)  NOT NULL,
    provider_event_id VARCHAR(191) NOT NULL,
    event_type        VARCHAR(100) NOT NULL,
    processed_at      DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    UNIQUE KEY ux_webhook_events_provider_event (provider, provider_event_id)
)`

// schema lists the DDL in dependency order.
var schema = []struct {
	name string
	sql  string
}{
	{"profiles", createProfilesSQL},
	{"refresh_tokens", createRefreshTokensSQL},
	{"service_packages", createServicePackagesSQL},
	{"add_ons", createAddOnsSQL},
	{"subscription_plans", createPlansSQL},
	{"vehicles", createVehiclesSQL},
	{"bookings", createBookingsSQL},
	{"subscriptions", createSubscriptionsSQL},
	{"subscription_vehicles", createSubscriptionVehiclesSQL},
	{"self_service_usage_logs", createUsageLogsSQL},
	{"reviews", createReviewsSQL},
	{"webhook_events", createWebhookEventsSQL},
}

// Migrate creates every table that does not exist yet.  Statements are
// executed one by one because the driver is opened without
// multiStatements.
func Migrate(ctx context.Context, db *sql.DB) error {
	for _, t := range schema {
		if _, err := db.ExecContext(ctx, t.sql); err != nil {
			return fmt.Errorf("migrate %s: %w", t.name, err)
		}
	}
	return nil
}
