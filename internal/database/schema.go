package database

const schema = `
CREATE TABLE IF NOT EXISTS users (
    id BIGINT AUTO_INCREMENT PRIMARY KEY,
    email VARCHAR(255) NOT NULL UNIQUE,
    name VARCHAR(255),
    credits INT NOT NULL DEFAULT 0,
    onboarding_status VARCHAR(16) NOT NULL DEFAULT 'NONE',
    plan_type VARCHAR(16),
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS onboarding_sessions (
    id BIGINT AUTO_INCREMENT PRIMARY KEY,
    user_id BIGINT NOT NULL,
    order_id VARCHAR(64) NOT NULL UNIQUE,
    plan_type VARCHAR(16) NOT NULL,
    answers TEXT,
    voice_sample_url VARCHAR(512),
    portrait_url VARCHAR(512),
    status VARCHAR(16) NOT NULL DEFAULT 'PENDING',
    expires_at TIMESTAMP NOT NULL,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
    FOREIGN KEY (user_id) REFERENCES users(id)
);

CREATE TABLE IF NOT EXISTS billing_records (
    id BIGINT AUTO_INCREMENT PRIMARY KEY,
    user_id BIGINT NOT NULL,
    amount INT NOT NULL,
    credits INT,
    plan_type VARCHAR(16),
    kind VARCHAR(16) NOT NULL,
    status VARCHAR(16) NOT NULL DEFAULT 'PENDING',
    order_id VARCHAR(64) NOT NULL UNIQUE,
    payment_id VARCHAR(64),
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
    FOREIGN KEY (user_id) REFERENCES users(id)
);

CREATE TABLE IF NOT EXISTS twins (
    id BIGINT AUTO_INCREMENT PRIMARY KEY,
    creator_user_id BIGINT NOT NULL,
    name VARCHAR(255) NOT NULL,
    greeting TEXT,
    backstory TEXT,
    voice_style VARCHAR(64),
    interests TEXT,
    avatar_status VARCHAR(16) NOT NULL DEFAULT 'PENDING',
    plan_type VARCHAR(16) NOT NULL,
    plan_expires_at TIMESTAMP NOT NULL,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
    FOREIGN KEY (creator_user_id) REFERENCES users(id)
);
`
