package db

// SchemaSQL contains the database schema initialization SQL.
// Statements are idempotent so InitSchema runs on every server start.
const SchemaSQL = `
    -- ==========================================================================
    -- RECORDING TABLE
    -- ==========================================================================
    DEFINE TABLE IF NOT EXISTS recording SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS client_id ON recording TYPE string;
    DEFINE FIELD IF NOT EXISTS employee_id ON recording TYPE string;
    DEFINE FIELD IF NOT EXISTS employee_role ON recording TYPE string
        ASSERT $value IN ["teacher", "sales_manager"];
    DEFINE FIELD IF NOT EXISTS audio_path ON recording TYPE option<string>;
    DEFINE FIELD IF NOT EXISTS transcription ON recording TYPE option<string>;
    DEFINE FIELD IF NOT EXISTS analysis ON recording TYPE option<string>;
    DEFINE FIELD IF NOT EXISTS score ON recording TYPE option<int>
        ASSERT $value = NONE OR ($value >= 1 AND $value <= 10);
    DEFINE FIELD IF NOT EXISTS status ON recording TYPE string DEFAULT "pending"
        ASSERT $value IN ["pending", "transcribing", "analyzing", "done", "error"];
    DEFINE FIELD IF NOT EXISTS created_at ON recording TYPE datetime DEFAULT time::now();
    DEFINE FIELD IF NOT EXISTS updated_at ON recording TYPE option<datetime>;

    DEFINE INDEX IF NOT EXISTS recording_status ON recording FIELDS status;
    DEFINE INDEX IF NOT EXISTS recording_employee ON recording FIELDS employee_id;
    DEFINE INDEX IF NOT EXISTS recording_created ON recording FIELDS created_at;

    -- ==========================================================================
    -- SETTING TABLE
    -- ==========================================================================
    -- Record id is the setting key, e.g. setting:prompt_teacher
    DEFINE TABLE IF NOT EXISTS setting SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS key ON setting TYPE string;
    DEFINE FIELD IF NOT EXISTS value ON setting TYPE string;
    DEFINE FIELD IF NOT EXISTS updated_at ON setting TYPE datetime DEFAULT time::now();
`
