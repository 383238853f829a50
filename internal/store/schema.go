package store

// SchemaSQL contains the database schema initialization SQL.
const SchemaSQL = `
    -- ==========================================================================
    -- BOOK TABLE
    -- ==========================================================================
    DEFINE TABLE IF NOT EXISTS book SCHEMAFULL;

    -- Basic metadata
    DEFINE FIELD IF NOT EXISTS title ON book TYPE string;
    DEFINE FIELD IF NOT EXISTS author ON book TYPE string;
    DEFINE FIELD IF NOT EXISTS isbn ON book TYPE option<string>;
    DEFINE FIELD IF NOT EXISTS publisher ON book TYPE option<string>;
    DEFINE FIELD IF NOT EXISTS year ON book TYPE option<int>;
    DEFINE FIELD IF NOT EXISTS language ON book TYPE option<string>;
    DEFINE FIELD IF NOT EXISTS description ON book TYPE option<string>;

    -- File info
    DEFINE FIELD IF NOT EXISTS format ON book TYPE string;
    DEFINE FIELD IF NOT EXISTS file_path ON book TYPE string;
    DEFINE FIELD IF NOT EXISTS file_size ON book TYPE int DEFAULT 0;
    DEFINE FIELD IF NOT EXISTS file_hash ON book TYPE option<string>;
    DEFINE FIELD IF NOT EXISTS cover_path ON book TYPE option<string>;

    -- Classification
    DEFINE FIELD IF NOT EXISTS category ON book TYPE string DEFAULT "Uncategorized";
    DEFINE FIELD IF NOT EXISTS subcategory ON book TYPE option<string>;
    DEFINE FIELD IF NOT EXISTS tags ON book TYPE array<string> DEFAULT [];

    -- Content
    DEFINE FIELD IF NOT EXISTS summary ON book TYPE option<string>;
    DEFINE FIELD IF NOT EXISTS text_content ON book TYPE option<string>;
    DEFINE FIELD IF NOT EXISTS page_count ON book TYPE option<int>;

    -- Vector search
    DEFINE FIELD IF NOT EXISTS vector_id ON book TYPE option<int>;

    -- Processing status
    DEFINE FIELD IF NOT EXISTS ocr_processed ON book TYPE bool DEFAULT false;
    DEFINE FIELD IF NOT EXISTS processing_status ON book TYPE string DEFAULT "pending";
    DEFINE FIELD IF NOT EXISTS processing_error ON book TYPE option<string>;

    -- Timestamps
    DEFINE FIELD IF NOT EXISTS created ON book TYPE datetime DEFAULT time::now();
    DEFINE FIELD IF NOT EXISTS updated ON book TYPE datetime DEFAULT time::now();

    -- Unique constraint: one record per file on disk
    DEFINE INDEX IF NOT EXISTS book_file_path ON book FIELDS file_path UNIQUE;
    DEFINE INDEX IF NOT EXISTS book_category ON book FIELDS category;
    DEFINE INDEX IF NOT EXISTS book_vector_id ON book FIELDS vector_id;
`
