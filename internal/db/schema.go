package db

// SchemaSQL contains the database schema initialization SQL.
const SchemaSQL = `
    -- ==========================================================================
    -- MEMORY TABLE (conversation turns, append-only)
    -- ==========================================================================
    DEFINE TABLE IF NOT EXISTS memory SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS tenant ON memory TYPE string;
    DEFINE FIELD IF NOT EXISTS conversation ON memory TYPE string;
    DEFINE FIELD IF NOT EXISTS participant ON memory TYPE string;
    DEFINE FIELD IF NOT EXISTS message ON memory TYPE string;
    DEFINE FIELD IF NOT EXISTS response ON memory TYPE string;
    DEFINE FIELD IF NOT EXISTS intent ON memory TYPE string;
    DEFINE FIELD IF NOT EXISTS sentiment ON memory TYPE string;
    DEFINE FIELD IF NOT EXISTS degraded ON memory TYPE bool DEFAULT false;
    DEFINE FIELD IF NOT EXISTS created ON memory TYPE datetime DEFAULT time::now();

    DEFINE INDEX IF NOT EXISTS memory_convo ON memory FIELDS conversation, participant;
    DEFINE INDEX IF NOT EXISTS memory_created ON memory FIELDS created;

    -- ==========================================================================
    -- CREDENTIAL TABLE (provider key pool)
    -- ==========================================================================
    DEFINE TABLE IF NOT EXISTS credential SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS tenant ON credential TYPE string;
    DEFINE FIELD IF NOT EXISTS secret ON credential TYPE string;
    DEFINE FIELD IF NOT EXISTS models ON credential TYPE array<string>;
    DEFINE FIELD IF NOT EXISTS daily_limit ON credential TYPE int DEFAULT 0;
    DEFINE FIELD IF NOT EXISTS used_today ON credential TYPE int DEFAULT 0;
    DEFINE FIELD IF NOT EXISTS active ON credential TYPE bool DEFAULT false;
    DEFINE FIELD IF NOT EXISTS window_start ON credential TYPE datetime DEFAULT time::now();
    DEFINE FIELD IF NOT EXISTS last_validated ON credential TYPE datetime DEFAULT time::now();
    DEFINE FIELD IF NOT EXISTS created ON credential TYPE datetime DEFAULT time::now();
    DEFINE FIELD IF NOT EXISTS updated ON credential TYPE datetime DEFAULT time::now();

    DEFINE INDEX IF NOT EXISTS credential_tenant ON credential FIELDS tenant;

    -- ==========================================================================
    -- OUTCOME TABLE (terminal conversation classifications)
    -- ==========================================================================
    DEFINE TABLE IF NOT EXISTS outcome SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS tenant ON outcome TYPE string;
    DEFINE FIELD IF NOT EXISTS conversation ON outcome TYPE string;
    DEFINE FIELD IF NOT EXISTS kind ON outcome TYPE string;
    DEFINE FIELD IF NOT EXISTS responses ON outcome TYPE array<string>;
    DEFINE FIELD IF NOT EXISTS created ON outcome TYPE datetime DEFAULT time::now();

    DEFINE INDEX IF NOT EXISTS outcome_tenant ON outcome FIELDS tenant;
    DEFINE INDEX IF NOT EXISTS outcome_created ON outcome FIELDS created;

    -- ==========================================================================
    -- PATTERN TABLE (mined success patterns)
    -- ==========================================================================
    DEFINE TABLE IF NOT EXISTS pattern SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS tenant ON pattern TYPE string;
    DEFINE FIELD IF NOT EXISTS type ON pattern TYPE string;
    DEFINE FIELD IF NOT EXISTS description ON pattern TYPE string;
    DEFINE FIELD IF NOT EXISTS strength ON pattern TYPE float DEFAULT 0.0;
    DEFINE FIELD IF NOT EXISTS triggers ON pattern TYPE array<string>;
    DEFINE FIELD IF NOT EXISTS sample_size ON pattern TYPE int DEFAULT 0;
    DEFINE FIELD IF NOT EXISTS created ON pattern TYPE datetime DEFAULT time::now();
    DEFINE FIELD IF NOT EXISTS updated ON pattern TYPE datetime DEFAULT time::now();

    DEFINE INDEX IF NOT EXISTS pattern_tenant_type ON pattern FIELDS tenant, type;
`
